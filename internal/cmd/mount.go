package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jra3/itemfs/internal/config"
	"github.com/jra3/itemfs/internal/engine"
	"github.com/jra3/itemfs/internal/fuseadapter"
)

const (
	lockFileName       = ".itemfs.lock"
	lockAcquireTimeout = 5 * time.Second
	lockPollInterval   = 100 * time.Millisecond
)

var mountCmd = &cobra.Command{
	Use:   "mount [mountpoint]",
	Short: "Mount the item filesystem",
	Long:  `Mount the item store at the specified mountpoint.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMount,
}

func init() {
	rootCmd.AddCommand(mountCmd)
	mountCmd.Flags().BoolP("foreground", "f", false, "accepted and ignored: mount always runs in the foreground")
}

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	storeRoot := cfg.Store.Root
	if storeRoot == "" {
		storeRoot = config.DefaultStoreRoot()
	}

	mountpoint := cfg.Mount.DefaultPath
	if len(args) > 0 {
		mountpoint = args[0]
	}
	if mountpoint == "" {
		return fmt.Errorf("mountpoint required: itemfs mount /path/to/mount")
	}

	if err := os.MkdirAll(mountpoint, 0755); err != nil {
		return fmt.Errorf("failed to create mountpoint: %w", err)
	}
	if err := os.MkdirAll(storeRoot, 0755); err != nil {
		return fmt.Errorf("failed to create store root: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if d, _ := cmd.Root().PersistentFlags().GetBool("debug"); d {
		debug = true
	}

	if cfg.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}

	lock := flock.New(filepath.Join(storeRoot, lockFileName))
	locked, err := tryLockWithTimeout(lock, lockAcquireTimeout)
	if err != nil {
		return fmt.Errorf("failed to acquire store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("store %s is already mounted by another itemfs process", storeRoot)
	}
	defer lock.Unlock()

	log.Printf("opening store at %s", storeRoot)
	eng, err := engine.Open(storeRoot, cfg.Mount.BinDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	fmt.Printf("Mounting itemfs at %s\n", mountpoint)

	server, err := fuseadapter.Mount(mountpoint, eng, debug)
	if err != nil {
		eng.Close()
		return fmt.Errorf("failed to mount: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nUnmounting...")
		server.Unmount()
	}()

	fmt.Println("Filesystem mounted. Press Ctrl+C to unmount.")
	server.Wait()

	return eng.Close()
}

// tryLockWithTimeout polls for the exclusive store lock rather than
// blocking indefinitely on flock(2), bounding how long a second mount
// attempt waits before giving up.
func tryLockWithTimeout(lock *flock.Flock, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		locked, err := lock.TryLock()
		if err != nil {
			return false, err
		}
		if locked {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(lockPollInterval)
	}
}
