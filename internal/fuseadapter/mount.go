package fuseadapter

import (
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jra3/itemfs/internal/engine"
)

// Mount builds the root inode over eng and mounts it at mountpoint.
// MountFS takes a pre-built root inode directly so tests can exercise the
// mount path without wiring a full Engine.
func Mount(mountpoint string, eng *engine.Engine, debug bool) (*fuse.Server, error) {
	return MountFS(mountpoint, NewRoot(eng), debug)
}

// MountFS mounts a pre-built root embedder, letting tests and Mount share
// the fs.Options tuning in one place.
func MountFS(mountpoint string, root fs.InodeEmbedder, debug bool) (*fuse.Server, error) {
	at := attrTimeout
	et := entryTimeout
	opts := &fs.Options{
		AttrTimeout:  &at,
		EntryTimeout: &et,
		MountOptions: fuse.MountOptions{
			Name:   "itemfs",
			FsName: "itemfs",
			Debug:  debug,
		},
	}
	return fs.Mount(mountpoint, root, opts)
}
