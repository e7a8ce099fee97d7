package iocli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Stdio IO поверх потоков процесса или команды cobra
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdio создаёт IO. Один reader на весь процесс: буфер не теряется между вызовами ReadInput.
func NewStdio(in io.Reader, out io.Writer) IO {
	return &Stdio{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// ReadInput печатает prompt и читает строку. Последняя строка без перевода строки тоже принимается.
func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)

	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
