package service

import (
	"fmt"
	"log"
	"time"
)

// PickAnnouncer sends the daily curator pick notification
type PickAnnouncer interface {
	AnnounceCuratorPick() error
}

// Scheduler handles scheduled tasks: the daily curator pick announcement
// and the weekly database backup.
type Scheduler struct {
	announcer PickAnnouncer
	backupSvc *BackupService
	pickTime  string // Format: "HH:MM"
	stopChan  chan struct{}
}

// NewScheduler creates a new Scheduler. announcer may be nil when no
// notifier is configured; the daily announcement is skipped then.
func NewScheduler(announcer PickAnnouncer, backupSvc *BackupService, pickTime string) *Scheduler {
	return &Scheduler{
		announcer: announcer,
		backupSvc: backupSvc,
		pickTime:  pickTime,
		stopChan:  make(chan struct{}),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	if s.announcer != nil {
		go s.runDailyPickScheduler()
	}
	go s.runWeeklyBackupScheduler()
	log.Printf("Scheduler started - Daily curator pick at %s, Weekly backup on Sundays at 03:00", s.pickTime)
}

// Stop stops all scheduled tasks
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// runDailyPickScheduler announces the curator pick once a day
func (s *Scheduler) runDailyPickScheduler() {
	for {
		nextRun := s.calculateNextPickTime()
		duration := time.Until(nextRun)

		log.Printf("Next curator pick scheduled at %s (in %v)", nextRun.Format("2006-01-02 15:04:05"), duration.Round(time.Minute))

		select {
		case <-time.After(duration):
			log.Println("Announcing curator pick...")
			if err := s.announcer.AnnounceCuratorPick(); err != nil {
				log.Printf("Failed to announce curator pick: %v", err)
			} else {
				log.Println("Curator pick announced successfully")
			}
		case <-s.stopChan:
			return
		}
	}
}

// runWeeklyBackupScheduler runs the weekly backup scheduler
func (s *Scheduler) runWeeklyBackupScheduler() {
	for {
		nextRun := s.calculateNextBackupTime()
		duration := time.Until(nextRun)

		log.Printf("Next backup scheduled at %s (in %v)", nextRun.Format("2006-01-02 15:04:05"), duration.Round(time.Hour))

		select {
		case <-time.After(duration):
			log.Println("Running weekly backup...")
			backupPath, err := s.backupSvc.Backup()
			if err != nil {
				log.Printf("Failed to create backup: %v", err)
			} else {
				log.Printf("Backup created successfully: %s", backupPath)
			}
		case <-s.stopChan:
			return
		}
	}
}

// calculateNextPickTime calculates the next daily announcement time
func (s *Scheduler) calculateNextPickTime() time.Time {
	now := time.Now()

	hour, minute := 8, 0 // Default to 08:00
	if s.pickTime != "" {
		fmt.Sscanf(s.pickTime, "%d:%d", &hour, &minute)
	}

	pickTime := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(pickTime) {
		pickTime = pickTime.Add(24 * time.Hour)
	}

	return pickTime
}

// calculateNextBackupTime calculates the next Sunday at 03:00
func (s *Scheduler) calculateNextBackupTime() time.Time {
	now := time.Now()

	daysUntilSunday := (7 - int(now.Weekday())) % 7
	if daysUntilSunday == 0 {
		// Today is Sunday, check if we've passed 03:00
		backupTime := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
		if now.After(backupTime) {
			daysUntilSunday = 7
		}
	}

	nextSunday := now.AddDate(0, 0, daysUntilSunday)
	return time.Date(nextSunday.Year(), nextSunday.Month(), nextSunday.Day(), 3, 0, 0, 0, now.Location())
}
