package records

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/OFFIS-RIT/pulse/internal/util"
	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/loader"
	"github.com/OFFIS-RIT/pulse/pkg/logger"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator"
	"github.com/kaptinlin/jsonrepair"
	"golang.org/x/sync/errgroup"
)

var identityPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)

var validate = validator.New()

// EmailRecord is one thread in an email export.
type EmailRecord struct {
	Subject      string   `json:"subject" validate:"required"`
	Participants []string `json:"participants"`
	FirstDate    string   `json:"first_date" validate:"required"`
	LastDate     string   `json:"last_date" validate:"required"`
	EmailCount   int      `json:"email_count" validate:"gte=0"`
}

// CalendarFile is a calendar export.
type CalendarFile struct {
	Events []*MeetingRecord `json:"events"`
}

// MeetingRecord is one event in a calendar export.
type MeetingRecord struct {
	UID         string   `json:"uid" validate:"required"`
	Summary     string   `json:"summary"`
	Start       string   `json:"start" validate:"required"`
	End         string   `json:"end" validate:"required"`
	Organizer   string   `json:"organizer"`
	Attendees   []string `json:"attendees"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
}

// Dataset holds the parsed records of one project.
type Dataset struct {
	Emails   []common.EmailThread
	Meetings []common.Meeting
}

// Load reads and parses an email export and a calendar export.
func Load(ctx context.Context, emails, calendar loader.SourceFile) (*Dataset, error) {
	var emailData, calendarData []byte

	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		data, err := emails.GetBytes(gCtx)
		if err != nil {
			return fmt.Errorf("Failed to read email export %s:\n%w", emails.Path, err)
		}
		emailData = data
		return nil
	})
	eg.Go(func() error {
		data, err := calendar.GetBytes(gCtx)
		if err != nil {
			return fmt.Errorf("Failed to read calendar export %s:\n%w", calendar.Path, err)
		}
		calendarData = data
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	threads, err := ParseEmails(emailData)
	if err != nil {
		return nil, err
	}
	meetings, err := ParseCalendar(calendarData)
	if err != nil {
		return nil, err
	}
	logger.Info("[Records] Loaded records", "email_threads", len(threads), "meetings", len(meetings))
	return &Dataset{Emails: threads, Meetings: meetings}, nil
}

// Decode unmarshals data into out. Malformed JSON is repaired once before
// giving up.
func Decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	logger.Warn("[Records] Input was malformed and has been repaired")
	return nil
}

// ParseEmails parses an email export. Threads without a subject, without
// a usable participant or with unparsable dates are skipped. Thread ids
// are derived from the position in the export.
func ParseEmails(data []byte) ([]common.EmailThread, error) {
	var raw []*EmailRecord
	if err := Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("Failed to parse email export:\n%w", err)
	}

	threads := make([]common.EmailThread, 0, len(raw))
	for idx, r := range raw {
		if r == nil {
			continue
		}
		if err := validate.Struct(r); err != nil {
			logger.Warn("[Records] Skipping email thread", "index", idx, "err", err)
			continue
		}
		participants := CleanIdentities(r.Participants)
		if len(participants) == 0 {
			continue
		}
		first, err := ParseTime(r.FirstDate)
		if err != nil {
			logger.Warn("[Records] Skipping email thread", "index", idx, "err", err)
			continue
		}
		last, err := ParseTime(r.LastDate)
		if err != nil {
			logger.Warn("[Records] Skipping email thread", "index", idx, "err", err)
			continue
		}
		threads = append(threads, common.EmailThread{
			ID:           fmt.Sprintf("email_thread_%d", idx),
			Subject:      util.SanitizeText(r.Subject),
			Participants: participants,
			FirstDate:    first,
			LastDate:     last,
			EmailCount:   r.EmailCount,
		})
	}
	return threads, nil
}

// ParseCalendar parses a calendar export. Events without uid or with
// unparsable times are skipped, as are meetings left without attendees.
func ParseCalendar(data []byte) ([]common.Meeting, error) {
	var raw CalendarFile
	if err := Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("Failed to parse calendar export:\n%w", err)
	}

	meetings := make([]common.Meeting, 0, len(raw.Events))
	for idx, r := range raw.Events {
		if r == nil {
			continue
		}
		if err := validate.Struct(r); err != nil {
			logger.Warn("[Records] Skipping calendar event", "index", idx, "err", err)
			continue
		}
		start, err := ParseTime(r.Start)
		if err != nil {
			logger.Warn("[Records] Skipping calendar event", "uid", r.UID, "err", err)
			continue
		}
		end, err := ParseTime(r.End)
		if err != nil {
			logger.Warn("[Records] Skipping calendar event", "uid", r.UID, "err", err)
			continue
		}
		attendees := CleanIdentities(r.Attendees)
		if len(attendees) == 0 {
			logger.Debug("[Records] Dropping meeting without attendees", "uid", r.UID)
			continue
		}
		summary := util.SanitizeText(r.Summary)
		if summary == "" {
			summary = "No Title"
		}
		meetings = append(meetings, common.Meeting{
			UID:         r.UID,
			Summary:     summary,
			Start:       start,
			End:         end,
			Organizer:   CleanIdentity(r.Organizer),
			Attendees:   attendees,
			Location:    util.SanitizeText(r.Location),
			Description: util.SanitizeText(r.Description),
		})
	}
	return meetings, nil
}

// CleanIdentity extracts the address from values such as
// "Jane <mailto:Jane@Acme.com>" and lower-cases it. It returns "" when no
// address is found.
func CleanIdentity(value string) string {
	value = strings.ReplaceAll(value, "mailto:", "")
	match := identityPattern.FindString(value)
	return strings.ToLower(strings.TrimSpace(match))
}

// CleanIdentities cleans every value and returns the distinct addresses in
// sorted order.
func CleanIdentities(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		id := CleanIdentity(v)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ParseTime parses a timestamp in any common layout and drops its zone,
// keeping the wall clock. Timestamps without zone are read as is.
func ParseTime(value string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
}
