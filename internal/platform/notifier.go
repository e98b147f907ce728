package platform

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"sysbridge/internal/events"
	"sysbridge/internal/pps"
	"sysbridge/pkg/types"
)

// Host event names, mirrored by the appevents package.
const (
	LanguageChangeEvent = "systemLanguageChange"
	RegionChangeEvent   = "systemRegionChange"
	FontChangeEvent     = "fontchanged"
)

// Notifier turns locale and font object changes into host events.
type Notifier struct {
	host *PPSHost
	pub  events.Publisher
	log  zerolog.Logger

	mu         sync.Mutex
	lastRegion string
}

func NewNotifier(host *PPSHost, pub events.Publisher, log zerolog.Logger) *Notifier {
	return &Notifier{host: host, pub: pub, log: log}
}

// Start subscribes to the host objects on w. The returned func stops it.
func (n *Notifier) Start(w *pps.Watcher) func() {
	p := n.host.Paths()
	stopLocale := w.Subscribe(p.Locale, n.onLocale)
	stopFont := w.Subscribe(p.Font, n.onFont)
	return func() {
		stopLocale()
		stopFont()
	}
}

func (n *Notifier) onLocale(ch pps.Change) {
	if ch.Initial {
		if r, err := n.host.SystemRegion(); err == nil {
			n.mu.Lock()
			n.lastRegion = r
			n.mu.Unlock()
		}
		return
	}
	if loc, ok := ch.Fields["locale"]; ok {
		n.log.Info().Str("locale", loc).Msg("system language changed")
		n.pub.Publish(events.Event{Name: LanguageChangeEvent, Payload: loc})
		// the region follows the locale only when the object sets none
		if _, err := n.host.attr(n.host.paths.Locale, "region"); IsMissing(err) {
			n.publishRegion(RegionOf(loc))
		}
	}
	if r, ok := ch.Fields["region"]; ok {
		n.publishRegion(r)
	}
}

// publishRegion emits the region event when r differs from the last one seen.
func (n *Notifier) publishRegion(r string) {
	n.mu.Lock()
	if r == "" || r == n.lastRegion {
		n.mu.Unlock()
		return
	}
	n.lastRegion = r
	n.mu.Unlock()
	n.log.Info().Str("region", r).Msg("system region changed")
	n.pub.Publish(events.Event{Name: RegionChangeEvent, Payload: r})
}

func (n *Notifier) onFont(ch pps.Change) {
	if ch.Initial {
		return
	}
	_, fam := ch.Fields["fontFamily"]
	_, size := ch.Fields["fontSize"]
	if !fam && !size {
		return
	}
	info := types.FontInfo{}
	if v, err := n.host.FontFamily(); err == nil {
		info.FontFamily = v
	}
	if v, ok := ch.Fields["fontSize"]; ok {
		if sz, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			info.FontSize = sz
		}
	} else if sz, err := n.host.FontSize(); err == nil {
		info.FontSize = sz
	}
	n.log.Info().Str("family", info.FontFamily).Int("size", info.FontSize).Msg("font changed")
	n.pub.Publish(events.Event{Name: FontChangeEvent, Payload: info})
}
