package store

import (
	"fmt"
	"time"
)

// Alarm is a durable schedule row. Unlike an in-memory timer, the next fire
// time survives the process being suspended or restarted: an overdue alarm
// fires as soon as the scheduler wakes.
type Alarm struct {
	Name     string        `gorm:"primaryKey"`
	Period   time.Duration `gorm:"not null"`
	NextFire time.Time     `gorm:"type:datetime;not null"`
}

// TableName names the durable alarm table.
func (Alarm) TableName() string { return "alarms" }

// RegisterAlarm creates the alarm row if missing and updates its period if
// changed. An existing (possibly overdue) next-fire time is preserved.
func (s *Store) RegisterAlarm(name string, period time.Duration, now time.Time) error {
	var a Alarm
	err := s.db.First(&a, "name = ?", name).Error
	if err != nil {
		if wrapNotFound(err) != ErrNotFound {
			return fmt.Errorf("failed to read alarm: %w", err)
		}
		a = Alarm{Name: name, Period: period, NextFire: now.Add(period)}
		if err := s.db.Create(&a).Error; err != nil {
			return fmt.Errorf("failed to create alarm: %w", err)
		}
		return nil
	}
	if a.Period != period {
		a.Period = period
		if err := s.db.Save(&a).Error; err != nil {
			return fmt.Errorf("failed to update alarm period: %w", err)
		}
	}
	return nil
}

// DueAlarms returns alarms whose next fire time has passed.
func (s *Store) DueAlarms(now time.Time) ([]Alarm, error) {
	var out []Alarm
	if err := s.db.Where("next_fire <= ?", now).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list due alarms: %w", err)
	}
	return out, nil
}

// AdvanceAlarm moves an alarm's next fire time forward. Advancing before the
// job runs keeps a crashing job from wedging the schedule.
func (s *Store) AdvanceAlarm(name string, next time.Time) error {
	err := s.db.Model(&Alarm{}).
		Where("name = ?", name).
		Update("next_fire", next).Error
	if err != nil {
		return fmt.Errorf("failed to advance alarm: %w", err)
	}
	return nil
}
