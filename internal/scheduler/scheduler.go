package scheduler

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/gcpreston/webcandy-client/internal/core"
)

// Entry pairs a cron expression with the lighting command it fires.
type Entry struct {
	Spec    string       `json:"spec"`
	Command core.Command `json:"command"`
}

// Scheduler fires lighting commands on cron schedules kept in a JSON file.
// Scheduled commands go through the same channel as server and MQTT ones, so
// they get the same validation and single-flight treatment.
type Scheduler struct {
	cron           *cron.Cron
	commandChannel core.CommandChannel
	schedulesFile  string

	mu      sync.Mutex
	entries []Entry
	ids     []cron.EntryID
}

// New creates a scheduler and loads its schedule file. A missing file just
// means no schedules.
func New(cmdChan core.CommandChannel, schedulesFile string) *Scheduler {
	s := &Scheduler{
		cron:           cron.New(),
		commandChannel: cmdChan,
		schedulesFile:  schedulesFile,
	}
	s.load()
	return s
}

// Start begins the cron ticker.
func (s *Scheduler) Start() {
	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()
	if n == 0 {
		return
	}
	s.cron.Start()
	log.Printf("[Scheduler] Started with %d schedules", n)
}

// Stop halts the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Add registers a new schedule and persists the file. The cron spec is
// validated here; the command itself is validated when it fires.
func (s *Scheduler) Add(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(entry.Spec, func() { s.fire(entry) })
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", entry.Spec, err)
	}
	s.entries = append(s.entries, entry)
	s.ids = append(s.ids, id)
	if err := s.save(); err != nil {
		return err
	}
	log.Printf("[Scheduler] Added schedule %q -> %s", entry.Spec, entry.Command)
	return nil
}

// Remove deletes the schedule at index (as listed by Entries) and persists
// the file.
func (s *Scheduler) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("no schedule at index %d", index)
	}
	s.cron.Remove(s.ids[index])
	removed := s.entries[index]
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	s.ids = append(s.ids[:index], s.ids[index+1:]...)
	if err := s.save(); err != nil {
		return err
	}
	log.Printf("[Scheduler] Removed schedule %q -> %s", removed.Spec, removed.Command)
	return nil
}

// Entries returns a copy of the current schedules, in file order.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Scheduler) load() {
	data, err := os.ReadFile(s.schedulesFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Scheduler] Error reading schedule file: %v", err)
		}
		return
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[Scheduler] Error unmarshalling schedule file %q: %v", s.schedulesFile, err)
		return
	}

	for _, entry := range entries {
		id, err := s.cron.AddFunc(entry.Spec, func() { s.fire(entry) })
		if err != nil {
			log.Printf("[Scheduler] Skipping schedule %q: %v", entry.Spec, err)
			continue
		}
		s.entries = append(s.entries, entry)
		s.ids = append(s.ids, id)
	}
}

func (s *Scheduler) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedules: %w", err)
	}
	if err := os.WriteFile(s.schedulesFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write schedule file: %w", err)
	}
	return nil
}

func (s *Scheduler) fire(entry Entry) {
	log.Printf("[Scheduler] Firing scheduled command: %s", entry.Command)
	select {
	case s.commandChannel <- entry.Command:
	default:
		log.Printf("[Scheduler] Command channel full, dropping: %s", entry.Command)
	}
}
