// Package fuseadapter bridges go-fuse/v2 kernel callbacks into the path
// resolver and the control channel (spec §4.5). It holds no domain logic
// of its own: every callback resolves or enumerates through
// internal/resolver and internal/engine, under the engine's single lock.
package fuseadapter

import (
	"context"
	"hash/fnv"
	"path"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jra3/itemfs/internal/engine"
	"github.com/jra3/itemfs/internal/resolver"
)

const (
	attrTimeout  = 1 * time.Second
	entryTimeout = 1 * time.Second
)

func ino(virtualPath string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(virtualPath))
	return h.Sum64()
}

// Node is the single inode type backing every synthetic (non-passthrough)
// path. It dispatches on its purpose's Kind the way resolver.Children and
// resolver.RenderMetadata do — there is one Go type here for the same
// reason Purpose itself is one tagged struct rather than nineteen.
type Node struct {
	fs.Inode
	eng     *engine.Engine
	purpose resolver.Purpose
	path    string // full virtual path from the mount root, for Readlink/grafting
}

var (
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeReadlinker = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeReader     = (*Node)(nil)
	_ fs.NodeWriter     = (*Node)(nil)
	_ fs.NodeReleaser   = (*Node)(nil)
)

// NewRoot constructs the root inode's embedder.
func NewRoot(eng *engine.Engine) fs.InodeEmbedder {
	return &Node{eng: eng, purpose: resolver.Root(), path: "/"}
}

func (n *Node) setOwner(out *fuse.Attr) {
	uid, gid := n.eng.Owner()
	out.Uid = uid
	out.Gid = gid
}

// Getattr fills mode/size per spec §4.2's filetype derivation: 0755 for
// directories, 0777 for symlinks, 0666 + rendered length for regular
// virtual files. Passthrough grafts never reach this Node (see Lookup).
func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.SetTimes(&now, &now, &now)
	n.setOwner(&out.Attr)

	switch {
	case n.purpose.IsDir():
		out.Mode = 0755 | syscall.S_IFDIR
	case n.purpose.IsSymlink():
		out.Mode = 0777 | syscall.S_IFLNK
	case n.purpose.Kind == resolver.KindSocket:
		out.Mode = 0666 | syscall.S_IFREG
	case n.purpose.IsMetadataFile():
		out.Mode = 0666 | syscall.S_IFREG
		var content string
		err := n.eng.Lock(func() error {
			c, err := n.eng.Resolver().RenderMetadata(n.purpose)
			content = c
			return err
		})
		if err == nil {
			out.Size = uint64(len(content))
		}
	default:
		return syscall.ENOENT
	}
	return 0
}

// Lookup resolves a single child name by consulting the resolver's child
// enumeration for this node's purpose, then constructs the right kind of
// inode for what it finds.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	var entries []resolver.Entry
	err := n.eng.Lock(func() error {
		e, err := n.eng.Resolver().Children(n.purpose)
		entries = e
		return err
	})
	if err != nil {
		return nil, syscall.EIO
	}

	for _, e := range entries {
		if e.Name != name {
			continue
		}
		childPath := path.Join(n.path, name)
		return n.buildChild(ctx, e.Purpose, childPath, out)
	}
	return nil, syscall.ENOENT
}

func (n *Node) buildChild(ctx context.Context, purpose resolver.Purpose, childPath string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	now := time.Now()
	out.SetAttrTimeout(attrTimeout)
	out.SetEntryTimeout(entryTimeout)
	out.Attr.SetTimes(&now, &now, &now)
	n.setOwner(&out.Attr)

	if purpose.Kind == resolver.KindPassthrough {
		return n.graftPassthrough(ctx, purpose.HostPath, childPath, out)
	}

	child := &Node{eng: n.eng, purpose: purpose, path: childPath}

	switch {
	case purpose.IsDir():
		out.Attr.Mode = 0755 | syscall.S_IFDIR
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: ino(childPath)}), 0
	case purpose.IsSymlink():
		out.Attr.Mode = 0777 | syscall.S_IFLNK
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFLNK, Ino: ino(childPath)}), 0
	case purpose.Kind == resolver.KindSocket:
		out.Attr.Mode = 0666 | syscall.S_IFREG
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: ino(childPath)}), 0
	case purpose.IsMetadataFile():
		out.Attr.Mode = 0666 | syscall.S_IFREG
		var content string
		err := n.eng.Lock(func() error {
			c, err := n.eng.Resolver().RenderMetadata(purpose)
			content = c
			return err
		})
		if err == nil {
			out.Attr.Size = uint64(len(content))
		}
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: ino(childPath)}), 0
	default:
		return nil, syscall.ENOENT
	}
}

// Readdir enumerates this node's children through the resolver.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	var entries []resolver.Entry
	err := n.eng.Lock(func() error {
		e, err := n.eng.Resolver().Children(n.purpose)
		entries = e
		return err
	})
	if err != nil {
		return nil, syscall.EIO
	}

	dirEntries := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(syscall.S_IFREG)
		switch {
		case e.Purpose.Kind == resolver.KindPassthrough:
			mode = syscall.S_IFDIR // refined by the kernel's own follow-up stat
		case e.Purpose.IsDir():
			mode = syscall.S_IFDIR
		case e.Purpose.IsSymlink():
			mode = syscall.S_IFLNK
		}
		dirEntries = append(dirEntries, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return fs.NewListDirStream(dirEntries), 0
}

// Readlink renders an ItemLink's relative target (spec §4.2).
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	if n.purpose.Kind != resolver.KindItemLink {
		return nil, syscall.EINVAL
	}
	target := resolver.Readlink(n.path, n.purpose.ItemID)
	return []byte(target), 0
}

// Open handles the socket (handle allocation) and no-ops for metadata
// files; any other synthetic path rejects opens per spec §4.5.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	switch {
	case n.purpose.Kind == resolver.KindSocket:
		id := n.eng.Handles().Open()
		return &socketHandle{id: id}, fuse.FOPEN_DIRECT_IO, 0
	case n.purpose.IsMetadataFile():
		return nil, fuse.FOPEN_DIRECT_IO, 0
	default:
		return nil, 0, syscall.EACCES
	}
}

// Read serves the socket's pending response or a metadata file's rendered
// content.
func (n *Node) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	var content []byte

	if n.purpose.Kind == resolver.KindSocket {
		h, ok := fh.(*socketHandle)
		if !ok {
			return nil, syscall.EIO
		}
		content = n.eng.Handles().Read(h.id)
	} else if n.purpose.IsMetadataFile() {
		var rendered string
		var err error
		lockErr := n.eng.Lock(func() error {
			rendered, err = n.eng.Resolver().RenderMetadata(n.purpose)
			return err
		})
		if lockErr != nil {
			return nil, syscall.EIO
		}
		content = []byte(rendered)
	} else {
		return nil, syscall.EINVAL
	}

	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}

// Write accepts a control-channel request body and dispatches it
// immediately: the socket has no intermediate buffered-write state, only a
// response buffer (spec §4.4).
func (n *Node) Write(ctx context.Context, fh fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	if n.purpose.Kind != resolver.KindSocket {
		return 0, syscall.EACCES
	}
	h, ok := fh.(*socketHandle)
	if !ok {
		return 0, syscall.EIO
	}

	resp, err := n.eng.Dispatch(data)
	if err != nil {
		return 0, syscall.EINVAL
	}
	n.eng.Handles().SetResponse(h.id, resp)
	return uint32(len(data)), 0
}

// Release frees the socket's response buffer.
func (n *Node) Release(ctx context.Context, fh fs.FileHandle) syscall.Errno {
	if n.purpose.Kind != resolver.KindSocket {
		return 0
	}
	if h, ok := fh.(*socketHandle); ok {
		n.eng.Handles().Release(h.id)
	}
	return 0
}

type socketHandle struct {
	id uint64
}
