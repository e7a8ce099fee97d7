package crdt

import (
	"errors"
	"fmt"
	"sync"

	"github.com/automerge/automerge-go"
)

// Ключи корневой map документа заметки
const (
	keyTitle   = "title"
	keyStarred = "starred"
	keyContent = "content"
)

// Origin помечает источник изменения документа
type Origin int

const (
	// OriginLocal изменение сделано на этом устройстве
	OriginLocal Origin = iota
	// OriginRemote изменение получено от сервера
	OriginRemote
	// OriginPersistence изменение восстановлено из локального хранилища
	OriginPersistence
)

// String возвращает имя источника для логов
func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// errNoChange возвращается мутацией, которой нечего фиксировать
var errNoChange = errors.New("no change")

// Observer получает каждое изменение документа в виде delta.
// Ошибка наблюдателя прерывает доставку последующим наблюдателям
// и возвращается вызвавшему мутацию.
// Наблюдатель не должен изменять тот же документ.
type Observer func(update []byte, origin Origin) error

type observerEntry struct {
	fn Observer
	id int
}

// Document представляет заметку как реплицируемый документ (automerge CRDT).
// Содержит текст заметки и метаданные (title, starred).
// Любые две реплики, получившие одинаковый набор изменений (в любом порядке,
// с повторами), сходятся к одинаковому состоянию и одинаковому Encode().
//
// Document безопасен для конкурентного использования.
type Document struct {
	doc       *automerge.Doc
	applied   map[automerge.ChangeHash]struct{} // изменения, вошедшие в doc
	pending   map[automerge.ChangeHash]chunk    // изменения, ждущие своих зависимостей
	observers []observerEntry
	nextID    int
	emitMu    sync.Mutex // упорядочивает мутацию и доставку delta наблюдателям
	mu        sync.Mutex // защищает doc, applied, pending, observers
}

// New создаёт пустой документ без истории изменений.
func New() *Document {
	return &Document{
		doc:     automerge.New(),
		applied: make(map[automerge.ChangeHash]struct{}),
		pending: make(map[automerge.ChangeHash]chunk),
	}
}

// Decode восстанавливает документ из полного состояния, полученного через Encode.
// Возвращает ErrCorruptState, если байты не разбираются.
func Decode(data []byte) (*Document, error) {
	chunks, err := splitChunks(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}

	d := New()
	if _, err := d.integrateLocked(chunks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return d, nil
}

// Encode сериализует полное состояние документа.
// Используется для снапшотов и первичной передачи новой реплике.
// Изменения, ждущие зависимостей, тоже входят в состояние.
func (d *Document) Encode() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	changes, err := d.doc.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to collect changes: %w", err)
	}

	all := chunksOf(changes)
	for _, c := range d.pending {
		all = append(all, c)
	}
	return encodeChunks(all), nil
}

// StateVector возвращает компактное описание уже применённой истории (heads документа).
func (d *Document) StateVector() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return encodeStateVector(d.doc.Heads())
}

// Delta вычисляет минимальное изменение, которое доводит реплику
// с состоянием remoteVector до текущего документа.
// Heads из remoteVector, неизвестные локально, игнорируются.
// Пустой результат означает, что удалённой стороне ничего не нужно.
func (d *Document) Delta(remoteVector []byte) ([]byte, error) {
	heads, err := decodeStateVector(remoteVector)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	since := make([]automerge.ChangeHash, 0, len(heads))
	for _, h := range heads {
		if _, ok := d.applied[h]; ok {
			since = append(since, h)
		}
	}

	missing, err := d.doc.Changes(since...)
	if err != nil {
		return nil, fmt.Errorf("failed to collect changes since remote heads: %w", err)
	}

	return encodeChunks(chunksOf(missing)), nil
}

// ApplyUpdate применяет delta к документу.
// Повторное применение той же delta ничего не меняет, порядок применения
// разных delta не важен: изменение без зависимостей ждёт их в документе.
// Некорректные байты дают ErrCorruptUpdate, документ при этом не изменяется.
// Если delta принесла новые изменения, они передаются наблюдателям с указанным origin.
func (d *Document) ApplyUpdate(update []byte, origin Origin) error {
	chunks, err := splitChunks(update)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptUpdate, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	fresh, err := d.integrateLocked(chunks)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptUpdate, err)
	}
	if len(fresh) == 0 {
		return nil
	}

	return d.emit(encodeChunks(fresh), origin)
}

// PendingChanges возвращает число полученных изменений, которые ждут зависимостей
func (d *Document) PendingChanges() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.pending)
}

// integrateLocked добавляет новые изменения и загружает в doc все,
// чьи зависимости уже есть. Возвращает изменения, которых документ не знал.
// Вызывается под d.mu (или до публикации документа).
func (d *Document) integrateLocked(chunks []chunk) ([]chunk, error) {
	var fresh []chunk
	for _, c := range chunks {
		if d.knownLocked(c.hash) {
			continue
		}
		d.pending[c.hash] = c
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	ready := d.readyLocked()
	if len(ready) == 0 {
		return fresh, nil
	}

	if err := d.doc.LoadIncremental(encodeChunks(ready)); err != nil {
		for _, c := range fresh {
			delete(d.pending, c.hash)
		}
		return nil, err
	}
	for _, c := range ready {
		d.applied[c.hash] = struct{}{}
		delete(d.pending, c.hash)
	}

	return fresh, nil
}

func (d *Document) knownLocked(hash automerge.ChangeHash) bool {
	if _, ok := d.applied[hash]; ok {
		return true
	}
	_, ok := d.pending[hash]
	return ok
}

// readyLocked выбирает из ожидающих изменения, все зависимости которых
// применены или сами готовы к применению
func (d *Document) readyLocked() []chunk {
	ready := make(map[automerge.ChangeHash]struct{})
	var out []chunk

	for progress := true; progress; {
		progress = false
		for hash, c := range d.pending {
			if _, ok := ready[hash]; ok {
				continue
			}
			if !d.depsSatisfied(c, ready) {
				continue
			}
			ready[hash] = struct{}{}
			out = append(out, c)
			progress = true
		}
	}
	return out
}

func (d *Document) depsSatisfied(c chunk, ready map[automerge.ChangeHash]struct{}) bool {
	for _, dep := range c.deps {
		if _, ok := d.applied[dep]; ok {
			continue
		}
		if _, ok := ready[dep]; ok {
			continue
		}
		return false
	}
	return true
}

// Observe подписывает наблюдателя на изменения документа.
// Наблюдатели вызываются синхронно в порядке подписки.
// Возвращает функцию отписки.
func (d *Document) Observe(fn Observer) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.observers = append(d.observers, observerEntry{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// Title возвращает заголовок заметки
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	title, err := automerge.As[string](d.doc.Path(keyTitle).Get())
	if err != nil {
		return ""
	}
	return title
}

// SetTitle изменяет заголовок заметки
func (d *Document) SetTitle(title string) error {
	return d.mutate(func(doc *automerge.Doc) error {
		return doc.Path(keyTitle).Set(title)
	})
}

// Starred возвращает флаг избранного
func (d *Document) Starred() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	starred, err := automerge.As[bool](d.doc.Path(keyStarred).Get())
	if err != nil {
		return false
	}
	return starred
}

// SetStarred изменяет флаг избранного
func (d *Document) SetStarred(starred bool) error {
	return d.mutate(func(doc *automerge.Doc) error {
		return doc.Path(keyStarred).Set(starred)
	})
}

// Content возвращает текст заметки
func (d *Document) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	text := contentText(d.doc)
	if text == nil {
		return ""
	}
	s, err := text.Get()
	if err != nil {
		return ""
	}
	return s
}

// InsertText вставляет s в текст заметки с позиции pos
func (d *Document) InsertText(pos int, s string) error {
	return d.mutate(func(doc *automerge.Doc) error {
		text, err := ensureContentText(doc)
		if err != nil {
			return err
		}
		if pos < 0 || pos > text.Len() {
			return fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, pos, text.Len())
		}
		return text.Insert(pos, s)
	})
}

// AppendText дописывает s в конец текста заметки
func (d *Document) AppendText(s string) error {
	return d.mutate(func(doc *automerge.Doc) error {
		text, err := ensureContentText(doc)
		if err != nil {
			return err
		}
		return text.Append(s)
	})
}

// DeleteText удаляет n символов текста, начиная с позиции pos
func (d *Document) DeleteText(pos, n int) error {
	return d.mutate(func(doc *automerge.Doc) error {
		text := contentText(doc)
		length := 0
		if text != nil {
			length = text.Len()
		}
		if pos < 0 || n < 0 || pos+n > length {
			return fmt.Errorf("%w: delete %d at %d, length %d", ErrOutOfRange, n, pos, length)
		}
		if n == 0 {
			return errNoChange
		}
		return text.Delete(pos, n)
	})
}

// mutate выполняет локальное изменение, фиксирует его и рассылает delta наблюдателям
func (d *Document) mutate(fn func(doc *automerge.Doc) error) error {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	update, err := d.commitLocked(fn)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if len(update) == 0 {
		return nil
	}

	return d.emit(update, OriginLocal)
}

func (d *Document) commitLocked(fn func(doc *automerge.Doc) error) ([]byte, error) {
	before := d.doc.Heads()

	if err := fn(d.doc); err != nil {
		if errors.Is(err, errNoChange) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := d.doc.Commit(""); err != nil {
		return nil, fmt.Errorf("failed to commit change: %w", err)
	}

	changes, err := d.doc.Changes(before...)
	if err != nil {
		return nil, fmt.Errorf("failed to collect committed changes: %w", err)
	}
	for _, ch := range changes {
		d.applied[ch.Hash()] = struct{}{}
	}

	return encodeChunks(chunksOf(changes)), nil
}

// emit вызывается под emitMu
func (d *Document) emit(update []byte, origin Origin) error {
	d.mu.Lock()
	observers := make([]observerEntry, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, o := range observers {
		if err := o.fn(update, origin); err != nil {
			return err
		}
	}
	return nil
}

// contentText возвращает текстовый объект заметки или nil, если текста ещё нет
func contentText(doc *automerge.Doc) *automerge.Text {
	v, err := doc.Path(keyContent).Get()
	if err != nil || v.Kind() != automerge.KindText {
		return nil
	}
	return doc.Path(keyContent).Text()
}

// ensureContentText создаёт текстовый объект при первой записи
func ensureContentText(doc *automerge.Doc) (*automerge.Text, error) {
	if text := contentText(doc); text != nil {
		return text, nil
	}
	if err := doc.Path(keyContent).Set(automerge.NewText("")); err != nil {
		return nil, fmt.Errorf("failed to create note content: %w", err)
	}
	return doc.Path(keyContent).Text(), nil
}
