// Package seed loads a sample wedding with its admin, events and guests.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/weddingbell/internal/model"
	"github.com/dukerupert/weddingbell/internal/store"
)

//go:embed sample.yaml
var sampleFixture []byte

type Fixture struct {
	Admin   AdminFixture   `yaml:"admin"`
	Wedding WeddingFixture `yaml:"wedding"`
	Events  []EventFixture `yaml:"events"`
	Guests  []GuestFixture `yaml:"guests"`
}

type AdminFixture struct {
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
	Password    string `yaml:"password"`
}

type WeddingFixture struct {
	Name       string `yaml:"name"`
	CoupleName string `yaml:"couple_name"`
	Timezone   string `yaml:"timezone"`
	DateStart  string `yaml:"date_start"`
	DateEnd    string `yaml:"date_end"`
}

type EventFixture struct {
	Title     string `yaml:"title"`
	StartsAt  string `yaml:"starts_at"`
	Venue     string `yaml:"venue"`
	DressCode string `yaml:"dress_code"`
}

type GuestFixture struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
	// Invited lists event titles.
	Invited []string `yaml:"invited"`
}

// Sample returns the bundled fixture.
func Sample() (*Fixture, error) {
	return Parse(sampleFixture)
}

// Parse decodes and validates a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) validate() error {
	if fx.Admin.Email == "" {
		return fmt.Errorf("fixture: admin email is required")
	}
	titles := make(map[string]bool, len(fx.Events))
	for _, e := range fx.Events {
		if e.Title == "" {
			return fmt.Errorf("fixture: event title is required")
		}
		if titles[e.Title] {
			return fmt.Errorf("fixture: duplicate event %q", e.Title)
		}
		if _, err := time.Parse(time.RFC3339, e.StartsAt); err != nil {
			return fmt.Errorf("fixture: event %q starts_at: %w", e.Title, err)
		}
		titles[e.Title] = true
	}
	for _, g := range fx.Guests {
		for _, title := range g.Invited {
			if !titles[title] {
				return fmt.Errorf("fixture: guest %q invited to unknown event %q", g.Name, title)
			}
		}
	}
	return nil
}

// Result holds the ids created by a seed run.
type Result struct {
	AdminID      string
	AdminCreated bool
	WeddingID    string
	RSVPID       string
	// EventIDs and GuestIDs are keyed by title and name.
	EventIDs map[string]string
	GuestIDs map[string]string
}

type Seeder struct {
	weddings *store.WeddingStore
	events   *store.EventStore
	guests   *store.GuestStore
	rsvps    *store.RSVPStore
	users    *store.UserStore
	logger   *slog.Logger
}

func NewSeeder(weddings *store.WeddingStore, events *store.EventStore, guests *store.GuestStore, rsvps *store.RSVPStore, users *store.UserStore, logger *slog.Logger) *Seeder {
	return &Seeder{weddings: weddings, events: events, guests: guests, rsvps: rsvps, users: users, logger: logger}
}

// Run creates a new wedding from fx. The admin user is reused when one with
// the same email already exists.
func (s *Seeder) Run(ctx context.Context, fx *Fixture) (*Result, error) {
	res := &Result{
		EventIDs: make(map[string]string, len(fx.Events)),
		GuestIDs: make(map[string]string, len(fx.Guests)),
	}

	admin, created, err := s.ensureAdmin(ctx, fx.Admin)
	if err != nil {
		return nil, err
	}
	res.AdminID = admin.ID
	res.AdminCreated = created

	wedding, err := s.weddings.Create(ctx, model.Wedding{
		Name:       fx.Wedding.Name,
		CoupleName: fx.Wedding.CoupleName,
		Timezone:   fx.Wedding.Timezone,
		DateStart:  fx.Wedding.DateStart,
		DateEnd:    fx.Wedding.DateEnd,
		Admins:     []string{admin.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("create wedding: %w", err)
	}
	res.WeddingID = wedding.ID
	s.logger.Info("created wedding", "wedding_id", wedding.ID)

	for _, ef := range fx.Events {
		e, err := s.events.Create(ctx, model.Event{
			WeddingID: wedding.ID,
			Title:     ef.Title,
			StartsAt:  ef.StartsAt,
			Venue:     ef.Venue,
			DressCode: ef.DressCode,
		})
		if err != nil {
			return nil, fmt.Errorf("create event %q: %w", ef.Title, err)
		}
		res.EventIDs[ef.Title] = e.ID
		s.logger.Info("created event", "title", ef.Title, "event_id", e.ID)
	}

	for _, gf := range fx.Guests {
		g, err := s.guests.Create(ctx, model.Guest{
			WeddingID: wedding.ID,
			Name:      gf.Name,
			Phone:     gf.Phone,
		})
		if err != nil {
			return nil, fmt.Errorf("create guest %q: %w", gf.Name, err)
		}
		res.GuestIDs[gf.Name] = g.ID

		for _, title := range gf.Invited {
			if err := s.guests.LinkEvent(ctx, res.EventIDs[title], g.ID, model.EventGuestInvited); err != nil {
				return nil, fmt.Errorf("link guest %q to %q: %w", gf.Name, title, err)
			}
		}
		s.logger.Info("added guest", "name", gf.Name, "guest_id", g.ID, "events", len(gf.Invited))
	}

	// The admin attends every event so their devices receive reminders.
	responses := make(map[string]string, len(res.EventIDs))
	for _, id := range res.EventIDs {
		responses[id] = model.RSVPGoing
	}
	rsvp, err := s.rsvps.Create(ctx, model.RSVP{WeddingID: wedding.ID, Responses: responses})
	if err != nil {
		return nil, fmt.Errorf("create admin rsvp: %w", err)
	}
	res.RSVPID = rsvp.ID
	if err := s.users.SetRSVP(ctx, admin.ID, wedding.ID, rsvp.ID); err != nil {
		return nil, fmt.Errorf("set admin rsvp: %w", err)
	}

	return res, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, af AdminFixture) (*model.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, af.Email)
	if err != nil {
		return nil, false, fmt.Errorf("get admin: %w", err)
	}
	if existing != nil {
		s.logger.Info("admin already exists", "user_id", existing.ID)
		u, err := s.users.UpdateProfile(ctx, existing.ID, af.DisplayName, model.RoleAdmin)
		if err != nil {
			return nil, false, fmt.Errorf("update admin profile: %w", err)
		}
		return u, false, nil
	}

	if af.Password == "" {
		return nil, false, fmt.Errorf("admin password is required to create %s", af.Email)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(af.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash admin password: %w", err)
	}
	u, err := s.users.Create(ctx, model.User{
		Email:        af.Email,
		DisplayName:  af.DisplayName,
		Role:         model.RoleAdmin,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("created admin", "user_id", u.ID)
	return u, true, nil
}
