// Package deeplink builds and parses bot start links that tie a chat session
// to a seating table and the moment its QR code was issued, e.g.
//
//	https://t.me/club_krush_bot?start=tableA12_2025-10-20_19-34-52
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// TimestampLayout is the issue-time format inside the start parameter.
const TimestampLayout = "2006-01-02_15-04-05"

const tablePrefix = "table"

var ErrInvalidLink = errors.New("not a table start link")

// Link is a start link for one table.
type Link struct {
	Host            string
	Bot             string
	TableIdentifier string
	IssuedAt        time.Time
}

// TableIdentifier derives the identifier embedded in links: "table" followed by
// the table name with whitespace removed, upper-cased.
func TableIdentifier(tableName string) string {
	var b strings.Builder
	b.WriteString(tablePrefix)
	for _, r := range tableName {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// New returns a link for tableName issued at the given time.
func New(host, bot, tableName string, issuedAt time.Time) Link {
	return Link{
		Host:            host,
		Bot:             strings.TrimPrefix(bot, "@"),
		TableIdentifier: TableIdentifier(tableName),
		IssuedAt:        issuedAt,
	}
}

// StartParam is the value of the start query parameter.
func (l Link) StartParam() string {
	return l.TableIdentifier + "_" + l.IssuedAt.Format(TimestampLayout)
}

func (l Link) String() string {
	return "https://" + l.Host + "/" + l.Bot + "?start=" + url.QueryEscape(l.StartParam())
}

// Parse is the inverse of Link.String. Issue times are read in loc.
func Parse(raw string, loc *time.Location) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return Link{}, fmt.Errorf("%w: want an https URL, got %q", ErrInvalidLink, raw)
	}

	bot := strings.Trim(u.Path, "/")
	if bot == "" || strings.Contains(bot, "/") {
		return Link{}, fmt.Errorf("%w: missing bot name", ErrInvalidLink)
	}

	start := u.Query().Get("start")
	if len(start) <= len(TimestampLayout)+1 {
		return Link{}, fmt.Errorf("%w: start parameter %q too short", ErrInvalidLink, start)
	}
	split := len(start) - len(TimestampLayout) - 1
	if start[split] != '_' {
		return Link{}, fmt.Errorf("%w: malformed start parameter %q", ErrInvalidLink, start)
	}

	identifier := start[:split]
	if !strings.HasPrefix(identifier, tablePrefix) || len(identifier) == len(tablePrefix) {
		return Link{}, fmt.Errorf("%w: unexpected table identifier %q", ErrInvalidLink, identifier)
	}

	if loc == nil {
		loc = time.Local
	}
	issuedAt, err := time.ParseInLocation(TimestampLayout, start[split+1:], loc)
	if err != nil {
		return Link{}, fmt.Errorf("%w: bad timestamp: %v", ErrInvalidLink, err)
	}

	return Link{
		Host:            u.Host,
		Bot:             bot,
		TableIdentifier: identifier,
		IssuedAt:        issuedAt,
	}, nil
}

// Generator issues links for one bot. The zero Now uses time.Now.
type Generator struct {
	Host string
	Bot  string
	Now  func() time.Time
}

// ForTable issues a link for tableName stamped with the current local time.
func (g Generator) ForTable(tableName string) Link {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return New(g.Host, g.Bot, tableName, now())
}
