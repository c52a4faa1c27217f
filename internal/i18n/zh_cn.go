package i18n

// ZhCNMessages 简体中文消息目录
var ZhCNMessages = map[string]string{
	"app.title": "taskchat",

	// 状态栏
	"status.loading": "加载中...",
	"status.ready":   "就绪",
	"status.sending": "等待回复...",
	"status.working": "处理中...",
	"status.tokens":  "约 %d tokens",
	"status.server":  "服务器",

	// 登录 / 注册
	"login.title":       "登录",
	"signup.title":      "注册",
	"login.username":    "用户名",
	"login.password":    "密码",
	"login.hint":        "enter 提交 · tab 切换输入框 · ctrl+s 注册 · ctrl+c 退出",
	"signup.hint":       "enter 提交 · tab 切换输入框 · ctrl+s 登录 · ctrl+c 退出",
	"login.success":     "登录成功。",
	"signup.success":    "账号已创建，请登录。",
	"login.required":    "请先登录。",
	"login.in_progress": "正在登录...",

	// 会话
	"session.expired":       "会话已过期，请重新登录。",
	"session.verify_failed": "无法验证会话：%s",
	"session.signed_in":     "当前用户 %s",
	"session.expires":       "%s 过期",
	"logout.done":           "已退出登录。",

	// 待办
	"todos.title":            "待办",
	"todos.empty":            "暂无待办，按 a 新增。",
	"todos.count":            "%d / %d 未完成",
	"todos.add_placeholder":  "要做什么？",
	"todos.edit_placeholder": "新名称",
	"todos.created":          "已新增 %q。",
	"todos.updated":          "已更新 %q。",
	"todos.deleted":          "已删除 %q。",
	"todos.hint":             "a 新增 · e 编辑 · 空格 切换 · d 删除 · c 对话 · r 刷新 · ctrl+o 退出登录 · q 退出",
	"todos.input_hint":       "enter 保存 · esc 取消",

	// 对话
	"chat.title":           "助手",
	"chat.placeholder":     "输入问题...",
	"chat.hint":            "enter 发送 · ctrl+l 清空 · ctrl+u 上传 · ctrl+f 文件 · esc 返回",
	"chat.greeting":        "你好！我是由 LangChain 和 LlamaIndex 驱动的 AI 助手，有什么可以帮你？",
	"chat.login_required":  "请先登录再使用聊天助手。",
	"chat.session_expired": "会话已过期，请重新登录。",
	"chat.send_failed":     "抱歉，处理你的消息时出错了，请重试。",
	"chat.cleared":         "对话已清空。",
	"chat.upload_prompt":   "要上传的文件路径",
	"chat.uploaded":        "已上传 %s。",
	"chat.files":           "已上传文件",
	"chat.no_files":        "暂无上传文件。",
	"chat.file_deleted":    "已删除 %s。",
	"chat.you":             "你",
	"chat.bot":             "助手",
	"chat.pending":         "发送中",
	"chat.failed":          "未送达",

	// REPL
	"repl.welcome":         "taskchat 已连接 %s，输入 /help 查看命令。",
	"repl.help":            "命令：\n  /login [用户名]      登录\n  /signup [用户名]     注册\n  /logout              退出登录\n  /whoami              查看当前用户\n  /todos               列出待办\n  /add <名称>          新增待办\n  /toggle <n>          切换第 n 项\n  /rename <n> <名称>   重命名第 n 项\n  /rm <n>              删除第 n 项\n  /chat                进入对话模式\n  /clear               清空对话\n  /upload <路径>       上传文件\n  /files               列出已上传文件\n  /rmfile <名称>       删除已上传文件\n  /server [url]        查看或保存服务器地址\n  /help                显示帮助\n  /exit                退出",
	"repl.unknown":         "未知命令：%s（输入 /help）",
	"repl.usage":           "用法：%s",
	"repl.bye":             "再见。",
	"repl.username_prompt": "用户名：",
	"repl.password_prompt": "密码：",
	"repl.chat_mode":       "已进入对话模式，直接输入即可发送；/todos 返回。",
	"repl.no_such_todo":    "没有第 %d 项待办。",
	"repl.server_saved":    "已将服务器地址 %s 写入项目配置。",
	"repl.not_a_command":   "当前不在对话模式，使用 /chat 与助手对话，或输入 /help。",
}
