package crdt

import "errors"

var (
	// ErrCorruptState означает, что байты не являются закодированным состоянием документа
	ErrCorruptState = errors.New("corrupt document state")

	// ErrCorruptUpdate означает, что байты не являются корректной delta документа
	ErrCorruptUpdate = errors.New("corrupt document update")

	// ErrCorruptStateVector означает, что state vector имеет неверный формат
	ErrCorruptStateVector = errors.New("corrupt state vector")

	// ErrOutOfRange означает, что позиция в тексте заметки выходит за его границы
	ErrOutOfRange = errors.New("text position out of range")
)
