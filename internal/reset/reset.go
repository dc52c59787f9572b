// Package reset wipes the world and bounces the game server once a
// round is lost. The sequence is ordered and best-effort: a failed
// step is logged and the rest still runs, since a half-reset server
// beats a stuck one.
package reset

import (
	"context"
	"log"
	"os"
	"time"
)

// ContainerRuntime is the handle on the game-server process. The
// docker client satisfies it.
type ContainerRuntime interface {
	Stop(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
}

// PlayerStore is cleared as part of the reset.
type PlayerStore interface {
	Clear() error
}

type Service struct {
	runtime   ContainerRuntime
	store     PlayerStore
	container string
	worldDir  string
	dataDir   string

	// Grace is how long to wait after stop before touching world
	// files. Sleep is swapped out by tests.
	Grace time.Duration
	Sleep func(time.Duration)
}

func NewService(runtime ContainerRuntime, store PlayerStore, container, worldDir, dataDir string) *Service {
	return &Service{
		runtime:   runtime,
		store:     store,
		container: container,
		worldDir:  worldDir,
		dataDir:   dataDir,
		Grace:     5 * time.Second,
		Sleep:     time.Sleep,
	}
}

// Reset stops the server, archives then deletes the world, clears the
// player store, and starts the server again.
func (s *Service) Reset(ctx context.Context) error {
	log.Printf("reset: stopping container %s", s.container)
	if err := s.runtime.Stop(ctx, s.container); err != nil {
		log.Printf("reset: stop container: %v (continuing)", err)
	}
	s.Sleep(s.Grace)

	if _, err := os.Stat(s.worldDir); os.IsNotExist(err) {
		log.Printf("reset: world dir %s not found, skipping deletion", s.worldDir)
	} else {
		// The wipe is destructive; keep an archive so a fat-fingered
		// trigger is survivable.
		if archive, err := s.archiveWorld(); err != nil {
			log.Printf("reset: archive world: %v (deleting anyway)", err)
		} else {
			log.Printf("reset: world archived to %s", archive)
		}
		if err := os.RemoveAll(s.worldDir); err != nil {
			log.Printf("reset: delete world: %v", err)
		} else {
			log.Printf("reset: deleted %s", s.worldDir)
		}
	}

	if err := s.store.Clear(); err != nil {
		log.Printf("reset: clear player store: %v", err)
	}

	log.Printf("reset: starting container %s", s.container)
	if err := s.runtime.Start(ctx, s.container); err != nil {
		log.Printf("reset: start container: %v", err)
		return err
	}
	log.Printf("reset: world + player data reset complete")
	return nil
}
