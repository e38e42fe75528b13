// Package dirtree serializes a directory tree into a deterministic byte
// stream and decodes it back (component C2 of the container format).
//
// The wire grammar is a small tag-length-value encoding (spec design note
// 9(a)): a byte tag (tagFile or tagDir), a little-endian uint32 name
// length, the name bytes, and then either a little-endian uint64 content
// length plus content bytes (file) or a little-endian uint32 child count
// plus that many nested records (directory), each already sorted
// lexicographically by raw byte-name. Integers are little-endian throughout
// to match the teacher's proto.Encoder/Decoder convention. There is no
// magic number and no version field — the grammar is implicit and fixed,
// per spec.md §6.
package dirtree

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pixsafe/pixsafe/internal/pathutil"
	"github.com/pixsafe/pixsafe/internal/stegoerr"
)

const (
	tagFile byte = 0x00
	tagDir  byte = 0x01
)

// Node is either a file (IsDir == false, Data valid) or a directory
// (IsDir == true, Children valid, sorted by Name).
//
// The root Node returned by Build may have an empty Name: that happens when
// the input path ended in a directory separator, meaning "hide the
// directory's contents, not the directory itself" (spec.md §4.2). Every
// other Node, at any depth, always has a non-empty Name.
type Node struct {
	Name     []byte
	IsDir    bool
	Data     []byte
	Children []*Node
}

// Build walks path and produces the Node tree described by spec.md §4.2.
//
// If path ends with '/', the returned root represents the directory's
// children directly (root.Name is empty, root.IsDir is true, the directory
// itself is not part of the payload). Otherwise the root is named
// filepath.Base(path) and wraps either a file's contents or a directory's
// children.
func Build(path string) (*Node, error) {
	trailingSlash := strings.HasSuffix(path, "/")
	clean := strings.TrimRight(path, "/")
	if clean == "" {
		clean = "/"
	}

	info, err := os.Stat(clean)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindInvalidInputPath, "dirtree.Build", err)
	}

	if trailingSlash && !info.IsDir() {
		return nil, stegoerr.New(stegoerr.KindInvalidInputPath, "dirtree.Build",
			"%q ends with a separator but is not a directory", path)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(clean)
		if err != nil {
			return nil, stegoerr.Wrap(stegoerr.KindInvalidInputPath, "dirtree.Build", err)
		}
		return &Node{Name: []byte(filepath.Base(clean)), IsDir: false, Data: data}, nil
	}

	children, err := buildChildren(clean)
	if err != nil {
		return nil, err
	}
	if trailingSlash {
		return &Node{IsDir: true, Children: children}, nil
	}
	return &Node{Name: []byte(filepath.Base(clean)), IsDir: true, Children: children}, nil
}

func buildChildren(dir string) ([]*Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindInvalidInputPath, "dirtree.Build", err)
	}
	names := make([]string, len(entries))
	byName := make(map[string]os.DirEntry, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
		byName[e.Name()] = e
	}
	// Lexicographic ascending by raw byte-name (spec.md §5), applied
	// recursively so the payload is reproducible across runs.
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	children := make([]*Node, 0, len(entries))
	for _, name := range names {
		e := byName[name]
		childPath := filepath.Join(dir, name)
		if e.IsDir() {
			sub, err := buildChildren(childPath)
			if err != nil {
				return nil, err
			}
			children = append(children, &Node{Name: []byte(name), IsDir: true, Children: sub})
			continue
		}
		data, err := os.ReadFile(childPath)
		if err != nil {
			return nil, stegoerr.Wrap(stegoerr.KindInvalidInputPath, "dirtree.Build", err)
		}
		children = append(children, &Node{Name: []byte(name), IsDir: false, Data: data})
	}
	return children, nil
}

// Serialize encodes root into the tag-length-value payload format.
func Serialize(root *Node) []byte {
	var buf []byte
	buf = appendNode(buf, root)
	return buf
}

func appendNode(buf []byte, n *Node) []byte {
	if n.IsDir {
		buf = append(buf, tagDir)
		buf = appendU32Bytes(buf, uint32(len(n.Name)))
		buf = append(buf, n.Name...)
		buf = appendU32Bytes(buf, uint32(len(n.Children)))
		for _, c := range n.Children {
			buf = appendNode(buf, c)
		}
		return buf
	}
	buf = append(buf, tagFile)
	buf = appendU32Bytes(buf, uint32(len(n.Name)))
	buf = append(buf, n.Name...)
	buf = appendU64Bytes(buf, uint64(len(n.Data)))
	buf = append(buf, n.Data...)
	return buf
}

func appendU32Bytes(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64Bytes(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Deserialize decodes data produced by Serialize. Any structural mismatch
// (bad tag, truncated record, trailing bytes) is reported as a
// stegoerr.KindCorruptPayload error.
func Deserialize(data []byte) (*Node, error) {
	const op = "dirtree.Deserialize"
	r := &reader{buf: data}
	n, err := r.readNode()
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	if r.off != len(r.buf) {
		return nil, stegoerr.New(stegoerr.KindCorruptPayload, op,
			"%d trailing bytes after decoded tree", len(r.buf)-r.off)
	}
	return n, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) need(n int) error {
	if r.off+n > len(r.buf) {
		return fmt.Errorf("dirtree: need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
	}
	return nil
}

func (r *reader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) readU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *reader) readU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *reader) readBytes(n uint64) ([]byte, error) {
	if n > uint64(len(r.buf)) {
		return nil, fmt.Errorf("dirtree: length %d exceeds remaining payload", n)
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *reader) readNode() (*Node, error) {
	tag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	nameLen, err := r.readU32()
	if err != nil {
		return nil, err
	}
	name, err := r.readBytes(uint64(nameLen))
	if err != nil {
		return nil, err
	}
	// Copy out of the shared backing buffer so the returned tree owns its
	// own bytes once the caller discards the serialized payload.
	nameCopy := append([]byte(nil), name...)

	switch tag {
	case tagFile:
		dataLen, err := r.readU64()
		if err != nil {
			return nil, err
		}
		data, err := r.readBytes(dataLen)
		if err != nil {
			return nil, err
		}
		return &Node{Name: nameCopy, IsDir: false, Data: append([]byte(nil), data...)}, nil
	case tagDir:
		childCount, err := r.readU32()
		if err != nil {
			return nil, err
		}
		children := make([]*Node, 0, childCount)
		for i := uint32(0); i < childCount; i++ {
			c, err := r.readNode()
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return &Node{Name: nameCopy, IsDir: true, Children: children}, nil
	default:
		return nil, fmt.Errorf("dirtree: unknown tag 0x%02x", tag)
	}
}

// WriteToDisk recreates root's contents under targetDir, which must already
// exist and be a directory.
func WriteToDisk(root *Node, targetDir string) error {
	const op = "dirtree.WriteToDisk"
	info, err := os.Stat(targetDir)
	if err != nil || !info.IsDir() {
		return stegoerr.New(stegoerr.KindInvalidInputPath, op, "target %q is not a directory", targetDir)
	}

	if len(root.Name) == 0 {
		if !root.IsDir {
			return stegoerr.New(stegoerr.KindCorruptPayload, op, "root has no name but is not a directory")
		}
		return writeChildren(root.Children, targetDir)
	}
	return writeNode(root, targetDir)
}

func writeChildren(children []*Node, dir string) error {
	for _, c := range children {
		if err := writeNode(c, dir); err != nil {
			return err
		}
	}
	return nil
}

func writeNode(n *Node, parentDir string) error {
	const op = "dirtree.WriteToDisk"
	if err := pathutil.SanitizeName(n.Name); err != nil {
		return stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	p := filepath.Join(parentDir, string(n.Name))

	if n.IsDir {
		if err := os.Mkdir(p, 0o755); err != nil && !os.IsExist(err) {
			return stegoerr.Wrap(stegoerr.KindIOError, op, err)
		}
		return writeChildren(n.Children, p)
	}
	if err := os.WriteFile(p, n.Data, 0o644); err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	return nil
}
