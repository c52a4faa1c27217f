package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// LineInput 行输入源
// LineInput reads one line at a time; ReadSecret reads without echo when the
// input is a terminal.
type LineInput interface {
	ReadLine(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
	Close() error
}

// errInterrupt is returned for Ctrl+C at the prompt.
var errInterrupt = errors.New("interrupt")

type basicLineInput struct {
	reader *bufio.Reader
	out    io.Writer
	// secretFd is the terminal descriptor for hidden input, -1 when the
	// input is not a terminal.
	secretFd int
}

// NewBasicInput reads plain lines from in. Secrets are echoed unless in is
// a terminal.
func NewBasicInput(in io.Reader, out io.Writer) LineInput {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &basicLineInput{
		reader:   bufio.NewReader(in),
		out:      out,
		secretFd: fd,
	}
}

func (b *basicLineInput) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *basicLineInput) ReadSecret(prompt string) (string, error) {
	if b.secretFd < 0 {
		return b.ReadLine(prompt)
	}
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	secret, err := term.ReadPassword(b.secretFd)
	if b.out != nil {
		fmt.Fprintln(b.out)
	}
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func (b *basicLineInput) Close() error { return nil }

type readlineInput struct {
	instance *readline.Instance
}

func newReadlineInput(historyPath string) (*readlineInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
		AutoComplete:      commandCompleter(),
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{instance: instance}, nil
}

func (r *readlineInput) ReadLine(prompt string) (string, error) {
	r.instance.SetPrompt(prompt)
	line, err := r.instance.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", errInterrupt
	}
	return line, err
}

func (r *readlineInput) ReadSecret(prompt string) (string, error) {
	secret, err := r.instance.ReadPassword(prompt)
	if errors.Is(err, readline.ErrInterrupt) {
		return "", errInterrupt
	}
	return string(secret), err
}

func (r *readlineInput) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// NewLineInput 创建行输入：终端下使用 readline，失败时回退到基础输入
// NewLineInput prefers readline with a history file and falls back to basic
// input, returning the readline error alongside the fallback.
func NewLineInput(historyPath string) (LineInput, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return NewBasicInput(os.Stdin, os.Stdout), nil
	}
	readlineReader, err := newReadlineInput(historyPath)
	if err == nil {
		return readlineReader, nil
	}
	return NewBasicInput(os.Stdin, os.Stdout), err
}

func commandCompleter() readline.AutoCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandNames))
	for _, name := range commandNames {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
