package store

import "errors"

var (
	// ErrStorageFatal означает, что изменение не удалось записать в журнал.
	// Изменение уже применено к документу в памяти, но не переживёт перезапуск.
	ErrStorageFatal = errors.New("failed to persist update")

	// ErrCorruptLog означает, что запись журнала не читается.
	// Журнал при этом не трогается.
	ErrCorruptLog = errors.New("corrupt update log")

	// ErrNoteNotFound означает, что у заметки нет ни снапшота, ни журнала
	ErrNoteNotFound = errors.New("note not found")

	// ErrNoteExists возвращается при создании заметки с занятым ID
	ErrNoteExists = errors.New("note already exists")

	// ErrStoreClosed возвращается после Close
	ErrStoreClosed = errors.New("store is closed")
)
