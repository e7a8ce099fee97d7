package crdt

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/automerge/automerge-go"
)

// hashSize размер хеша изменения automerge (SHA-256)
const hashSize = len(automerge.ChangeHash{})

// Заголовок chunk'а automerge: magic, checksum, тип, uLEB128 длина тела
var chunkMagic = []byte{0x85, 0x6f, 0x4a, 0x83}

const (
	magicSize       = 4
	checksumSize    = 4
	chunkHeaderSize = magicSize + checksumSize + 1
	chunkTypeChange = 1
)

var (
	errBadMagic    = errors.New("bad chunk magic")
	errBadChecksum = errors.New("chunk checksum mismatch")
	errTruncated   = errors.New("truncated chunk")
)

// chunk одно несжатое изменение в бинарном формате automerge.
// Хеш изменения считается по байтам chunk'а, поэтому одинаковые
// изменения всегда дают одинаковые байты.
type chunk struct {
	raw  []byte
	deps []automerge.ChangeHash
	hash automerge.ChangeHash
}

func chunkOf(ch *automerge.Change) chunk {
	return chunk{
		raw:  ch.Save(),
		deps: ch.Dependencies(),
		hash: ch.Hash(),
	}
}

func chunksOf(changes []*automerge.Change) []chunk {
	out := make([]chunk, 0, len(changes))
	for _, ch := range changes {
		out = append(out, chunkOf(ch))
	}
	return out
}

// splitChunks разбирает последовательность изменений без документа:
// проверяет заголовок и контрольную сумму каждого chunk'а и читает зависимости.
func splitChunks(data []byte) ([]chunk, error) {
	var out []chunk

	for off := 0; off < len(data); {
		rest := data[off:]
		if len(rest) < chunkHeaderSize {
			return nil, fmt.Errorf("%w at offset %d", errTruncated, off)
		}
		if !bytes.Equal(rest[:magicSize], chunkMagic) {
			return nil, fmt.Errorf("%w at offset %d", errBadMagic, off)
		}
		if typ := rest[chunkHeaderSize-1]; typ != chunkTypeChange {
			return nil, fmt.Errorf("unsupported chunk type %d at offset %d", typ, off)
		}

		length, n := binary.Uvarint(rest[chunkHeaderSize:])
		if n <= 0 {
			return nil, fmt.Errorf("%w: bad length at offset %d", errTruncated, off)
		}
		start := chunkHeaderSize + n
		if length > uint64(len(rest)-start) {
			return nil, fmt.Errorf("%w at offset %d", errTruncated, off)
		}
		end := start + int(length)

		// хеш считается по типу, длине и телу
		hash := sha256.Sum256(rest[chunkHeaderSize-1 : end])
		if !bytes.Equal(hash[:checksumSize], rest[magicSize:chunkHeaderSize-1]) {
			return nil, fmt.Errorf("%w at offset %d", errBadChecksum, off)
		}

		deps, err := parseDeps(rest[start:end])
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", off, err)
		}

		out = append(out, chunk{
			raw:  bytes.Clone(rest[:end]),
			deps: deps,
			hash: automerge.ChangeHash(hash),
		})
		off += end
	}

	return out, nil
}

// parseDeps читает список зависимостей из начала тела изменения
func parseDeps(body []byte) ([]automerge.ChangeHash, error) {
	count, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad dependency count", errTruncated)
	}
	if count > uint64(len(body)-n)/uint64(hashSize) {
		return nil, fmt.Errorf("%w: %d dependencies", errTruncated, count)
	}

	deps := make([]automerge.ChangeHash, 0, count)
	for off := n; len(deps) < int(count); off += hashSize {
		var h automerge.ChangeHash
		copy(h[:], body[off:off+hashSize])
		deps = append(deps, h)
	}
	return deps, nil
}

// encodeChunks сериализует изменения в детерминированном порядке.
// Реплики с одинаковым набором изменений получают одинаковые байты.
func encodeChunks(chunks []chunk) []byte {
	if len(chunks) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, c := range sortChunks(chunks) {
		buf.Write(c.raw)
	}
	return buf.Bytes()
}

// sortChunks упорядочивает изменения топологически (зависимости раньше зависимых),
// при равенстве выбирается меньший хеш. Дубликаты отбрасываются.
// Зависимости, которых нет в наборе, не учитываются.
func sortChunks(chunks []chunk) []chunk {
	byHash := make(map[automerge.ChangeHash]chunk, len(chunks))
	for _, c := range chunks {
		byHash[c.hash] = c
	}

	indegree := make(map[automerge.ChangeHash]int, len(byHash))
	children := make(map[automerge.ChangeHash][]automerge.ChangeHash)
	for hash, c := range byHash {
		for _, dep := range c.deps {
			if _, ok := byHash[dep]; !ok {
				continue
			}
			indegree[hash]++
			children[dep] = append(children[dep], hash)
		}
	}

	ready := make([]automerge.ChangeHash, 0, len(byHash))
	for hash := range byHash {
		if indegree[hash] == 0 {
			ready = append(ready, hash)
		}
	}
	slices.SortFunc(ready, compareHashes)

	result := make([]chunk, 0, len(byHash))
	for len(ready) > 0 {
		hash := ready[0]
		ready = ready[1:]
		result = append(result, byHash[hash])

		for _, child := range children[hash] {
			indegree[child]--
			if indegree[child] == 0 {
				pos, _ := slices.BinarySearchFunc(ready, child, compareHashes)
				ready = slices.Insert(ready, pos, child)
			}
		}
	}

	return result
}

func compareHashes(a, b automerge.ChangeHash) int {
	return bytes.Compare(a[:], b[:])
}

// encodeStateVector кодирует heads документа: отсортированные хеши подряд
func encodeStateVector(heads []automerge.ChangeHash) []byte {
	sorted := slices.Clone(heads)
	slices.SortFunc(sorted, compareHashes)

	out := make([]byte, 0, len(sorted)*hashSize)
	for _, h := range sorted {
		out = append(out, h[:]...)
	}
	return out
}

// decodeStateVector разбирает state vector, закодированный encodeStateVector
func decodeStateVector(data []byte) ([]automerge.ChangeHash, error) {
	if len(data)%hashSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrCorruptStateVector, len(data), hashSize)
	}

	heads := make([]automerge.ChangeHash, 0, len(data)/hashSize)
	for off := 0; off < len(data); off += hashSize {
		var h automerge.ChangeHash
		copy(h[:], data[off:off+hashSize])
		heads = append(heads, h)
	}
	return heads, nil
}

// MergeUpdates объединяет несколько delta в одну эквивалентную без живого документа.
// Используется для сжатия журнала изменений.
func MergeUpdates(updates [][]byte) ([]byte, error) {
	var all []chunk
	for i, update := range updates {
		chunks, err := splitChunks(update)
		if err != nil {
			return nil, fmt.Errorf("%w: update %d: %w", ErrCorruptUpdate, i, err)
		}
		all = append(all, chunks...)
	}
	return encodeChunks(all), nil
}
