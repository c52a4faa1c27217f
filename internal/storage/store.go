package storage

// SlotStore 凭证槽位持久化接口，支持多后端 (SQLite / Memory)
// SlotStore is the credential slot persistence interface supporting multiple backends
type SlotStore interface {
	// ReadSlots 返回存在的槽位值，缺失的键不出现在结果中
	// ReadSlots returns the values of the slots that exist; missing keys are absent from the map
	ReadSlots(keys ...string) (map[string]string, error)

	// WriteSlots 在一个事务中写入所有槽位
	// WriteSlots writes every slot in a single transaction
	WriteSlots(values map[string]string) error

	// DeleteSlots 在一个事务中删除槽位，键不存在不报错
	// DeleteSlots removes slots in a single transaction; absent keys are not an error
	DeleteSlots(keys ...string) error

	// 生命周期 / Lifecycle
	Close() error
}
