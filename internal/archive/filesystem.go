package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Filesystem keeps archive entries under a root directory. Every path is
// resolved with openat2(RESOLVE_IN_ROOT), so a key cannot name anything
// outside the root even through ".." or symlinks.
type Filesystem struct {
	root string
	dfd  int
}

func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create archive root: %w", err)
	}
	dfd, err := unix.Open(root, unix.O_DIRECTORY|unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive root: %w", err)
	}
	return &Filesystem{root: root, dfd: dfd}, nil
}

func (f *Filesystem) Close() error {
	return unix.Close(f.dfd)
}

func (f *Filesystem) Read(_ context.Context, key string) (io.ReadCloser, error) {
	file, err := f.open(key, unix.O_RDONLY, 0)
	if errors.Is(err, unix.ENOENT) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Write stages the entry under a temporary name and renames it into place,
// so readers never observe a partially written entry.
func (f *Filesystem) Write(_ context.Context, key string, r io.Reader) error {
	dir, base := path.Split(path.Clean("/" + key))
	if base == "" {
		return fmt.Errorf("invalid archive key %q", key)
	}
	if err := f.ensureDir(dir); err != nil {
		return err
	}

	parent, err := f.open(dir, unix.O_DIRECTORY|unix.O_PATH, 0)
	if err != nil {
		return err
	}
	defer parent.Close()

	staged := "." + base + "." + uuid.NewString() + ".tmp"
	file, err := f.open(path.Join(dir, staged), unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = unix.Unlinkat(int(parent.Fd()), staged, 0)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := file.Close(); err != nil {
		_ = unix.Unlinkat(int(parent.Fd()), staged, 0)
		return err
	}
	pfd := int(parent.Fd())
	if err := unix.Renameat(pfd, staged, pfd, base); err != nil {
		_ = unix.Unlinkat(pfd, staged, 0)
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}
	return nil
}

func (f *Filesystem) Remove(_ context.Context, key string) error {
	dir, base := path.Split(path.Clean("/" + key))
	parent, err := f.open(dir, unix.O_DIRECTORY|unix.O_PATH, 0)
	if errors.Is(err, unix.ENOENT) {
		return nil
	}
	if err != nil {
		return err
	}
	defer parent.Close()

	if err := unix.Unlinkat(int(parent.Fd()), base, 0); err != nil && !errors.Is(err, unix.ENOENT) {
		return err
	}
	return nil
}

// ensureDir creates each missing component of dir, walking down from the
// root one segment at a time.
func (f *Filesystem) ensureDir(dir string) error {
	current := "/"
	for _, segment := range strings.Split(strings.Trim(dir, "/"), "/") {
		if segment == "" {
			continue
		}
		parent, err := f.open(current, unix.O_DIRECTORY|unix.O_PATH, 0)
		if err != nil {
			return err
		}
		err = unix.Mkdirat(int(parent.Fd()), segment, dirPerm)
		_ = parent.Close()
		if err != nil && !errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("mkdir %s: %w", path.Join(current, segment), err)
		}
		current = path.Join(current, segment)
	}
	return nil
}

func (f *Filesystem) open(name string, flags int, perm uint32) (*os.File, error) {
	how := unix.OpenHow{
		Flags:   uint64(flags) | unix.O_CLOEXEC,
		Mode:    uint64(perm),
		Resolve: unix.RESOLVE_IN_ROOT,
	}
	for {
		fd, err := unix.Openat2(f.dfd, name, &how)
		// EINTR: Go issues 11180, 39237. EAGAIN: concurrent rename inside the root.
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return os.NewFile(uintptr(fd), name), nil
	}
}
