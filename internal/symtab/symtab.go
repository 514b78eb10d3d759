// Package symtab implements the Symbol Serializer (C8): the on-disk `.sym`
// manifest format a module's import/export directives read and write.
package symtab

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/segmentio/ksuid"

	"saby/internal/types"
)

// Magic is the 4-byte little-endian header every `.sym` file opens with —
// 0x72297962, "sabysymb" spelled on a T9 keypad.
const Magic uint32 = 0x72297962

// Record is one `(identifier, encoded-type)` pair in the symbol stream.
type Record struct {
	Name string
	Type types.Value
}

// Write truncates-and-rewrites path atomically: the records are staged to a
// ksuid-stamped temp file in the same directory, then renamed into place,
// so two concurrent exports targeting the same path never observe or share
// a half-written file (§5).
func Write(path string, records []Record) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+ksuid.New().String()+".tmp")

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], Magic)
	if _, err := w.Write(hdr[:]); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	for _, r := range records {
		if _, err := w.WriteString(r.Name); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
		if err := w.WriteByte(0); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(r.Type))
		if _, err := w.Write(buf[:]); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Read parses a `.sym` file into its record stream.
func Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("symtab: %s: truncated header", path)
	}
	if binary.LittleEndian.Uint32(data[:4]) != Magic {
		return nil, fmt.Errorf("symtab: %s: bad magic", path)
	}
	data = data[4:]

	var records []Record
	for len(data) > 0 {
		nul := -1
		for i, b := range data {
			if b == 0 {
				nul = i
				break
			}
		}
		if nul < 0 {
			return nil, fmt.Errorf("symtab: %s: unterminated identifier", path)
		}
		name := string(data[:nul])
		data = data[nul+1:]
		if len(data) < 8 {
			return nil, fmt.Errorf("symtab: %s: truncated type value", path)
		}
		t := types.Value(int64(binary.LittleEndian.Uint64(data[:8])))
		data = data[8:]
		records = append(records, Record{Name: name, Type: t})
	}
	return records, nil
}

// PathHash hashes an absolute path for duplicate-import detection, the Go
// equivalent of the original's `std::hash<std::string>()(path)`.
func PathHash(absPath string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(absPath))
	return h.Sum64()
}
