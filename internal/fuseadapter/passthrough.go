package fuseadapter

import (
	"context"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// graftPassthrough grafts hostPath into the inode tree at the point a
// KindPassthrough purpose was resolved. Directories are handed off to
// go-fuse's own loopback implementation wholesale, the way the original
// resolver's passthrough purpose hands off "everything under here is a
// regular directory tree" (spec §4.2/§4.5): nothing below this graft point
// is ever inspected by the resolver again. Individual files (tool
// binaries) get a small dedicated node instead, since NewLoopbackRoot
// expects a directory.
func (n *Node) graftPassthrough(ctx context.Context, hostPath, virtualPath string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	var st syscall.Stat_t
	if err := syscall.Lstat(hostPath, &st); err != nil {
		return nil, fs.ToErrno(err)
	}

	out.Attr.Mode = st.Mode
	out.Attr.Size = uint64(st.Size)

	if st.Mode&syscall.S_IFMT == syscall.S_IFDIR {
		root, err := fs.NewLoopbackRoot(hostPath)
		if err != nil {
			return nil, fs.ToErrno(err)
		}
		return n.NewInode(ctx, root, fs.StableAttr{
			Mode: st.Mode &^ 0777 | 0755,
			Ino:  st.Ino,
		}), 0
	}

	child := &PassthroughFileNode{hostPath: hostPath}
	return n.NewInode(ctx, child, fs.StableAttr{
		Mode: st.Mode & syscall.S_IFMT,
		Ino:  st.Ino,
	}), 0
}

// PassthroughFileNode serves a single host file verbatim (e.g. a tool
// binary enumerated under /bin). It delegates every call straight to the
// os package rather than going through the resolver or the engine lock:
// passthrough content is not metadata.
type PassthroughFileNode struct {
	fs.Inode
	hostPath string
}

var (
	_ fs.NodeOpener   = (*PassthroughFileNode)(nil)
	_ fs.NodeGetattrer = (*PassthroughFileNode)(nil)
)

func (p *PassthroughFileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	var st syscall.Stat_t
	if err := syscall.Lstat(p.hostPath, &st); err != nil {
		return fs.ToErrno(err)
	}
	out.Attr.FromStat(&st)
	return 0
}

func (p *PassthroughFileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	f, err := os.OpenFile(p.hostPath, int(flags), 0)
	if err != nil {
		return nil, 0, fs.ToErrno(err)
	}
	return &passthroughFileHandle{f: f}, 0, 0
}

type passthroughFileHandle struct {
	f *os.File
}

var (
	_ fs.FileReader   = (*passthroughFileHandle)(nil)
	_ fs.FileWriter   = (*passthroughFileHandle)(nil)
	_ fs.FileReleaser = (*passthroughFileHandle)(nil)
)

func (h *passthroughFileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := h.f.ReadAt(dest, off)
	if err != nil && n == 0 {
		return nil, fs.ToErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *passthroughFileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := h.f.WriteAt(data, off)
	if err != nil {
		return uint32(n), fs.ToErrno(err)
	}
	return uint32(n), 0
}

func (h *passthroughFileHandle) Release(ctx context.Context) syscall.Errno {
	return fs.ToErrno(h.f.Close())
}
