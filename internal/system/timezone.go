package system

import (
	"errors"
	"os"
	"strings"

	"sysbridge/internal/common/fsutil"
	"sysbridge/internal/pps"
)

const (
	DefaultTimezonePath  = "/pps/services/confstr/_CS_TIMEZONE"
	DefaultTimezonesFile = "/usr/share/zoneinfo/tzvalid"

	timezoneObject = "_CS_TIMEZONE"
	timezoneAttr   = "_CS_TIMEZONE"

	readTimezonesMsg = "Fail to read timezones"
)

// CurrentTimezone returns the configured timezone, or nil when the object
// or its field is absent.
func (s *Service) CurrentTimezone() (*string, error) {
	data, err := s.store.Read(s.timezonePath)
	if err != nil {
		if errors.Is(err, pps.ErrNoObject) {
			return nil, nil
		}
		return nil, fail("", err)
	}
	tz, ok := data.Field(timezoneObject, timezoneAttr)
	if !ok {
		return nil, nil
	}
	return &tz, nil
}

// Timezones reads the list of valid timezone names from the sandboxed
// tzvalid file. Only lines starting with a quote are kept, with all quotes
// removed.
func (s *Service) Timezones() ([]string, error) {
	file, err := fsutil.Resolve(s.sandboxRoot, s.timezonesFile)
	if err != nil {
		return nil, fail(readTimezonesMsg, err)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		s.log.Warn().Err(err).Str("file", s.timezonesFile).Msg("read timezones")
		return nil, fail(readTimezonesMsg, err)
	}
	return ParseTimezones(string(b)), nil
}

// ParseTimezones extracts quoted timezone names from tzvalid content.
func ParseTimezones(content string) []string {
	zones := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, `"`) {
			zones = append(zones, strings.ReplaceAll(line, `"`, ""))
		}
	}
	return zones
}
