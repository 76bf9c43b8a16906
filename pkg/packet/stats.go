package packet

import (
	"errors"
	"log/slog"
	"sync"
)

type checksumCounter struct {
	seen int
	bad  int
}

// note records one packet and reports whether a diagnostic is due: more than
// four packets seen and at least every other one bad. The counter restarts
// after each report.
func (c *checksumCounter) note(bad bool) (seen, badCount int, due bool) {
	c.seen++
	if !bad {
		return 0, 0, false
	}
	c.bad++
	if c.seen > 4 && c.seen/c.bad < 2 {
		seen, badCount = c.seen, c.bad
		c.seen, c.bad = 0, 0
		return seen, badCount, true
	}
	return 0, 0, false
}

// Decoder wraps DecodeUDPIPHeader with rate-limited checksum diagnostics.
type Decoder struct {
	port   uint16
	logger *slog.Logger

	mu  sync.Mutex
	ip  checksumCounter
	udp checksumCounter
}

func NewDecoder(port uint16, logger *slog.Logger) *Decoder {
	return &Decoder{port: port, logger: logger}
}

func (d *Decoder) Decode(buf []byte) (*Datagram, error) {
	dg, err := DecodeUDPIPHeader(buf, d.port)
	if errors.Is(err, ErrTruncated) && len(buf) < IPHeaderLen {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ipBad := errors.Is(err, ErrIPChecksum)
	if seen, bad, due := d.ip.note(ipBad); due {
		d.logger.Info("Bad IP checksums seen", "bad", bad, "packets", seen)
	}
	if ipBad {
		return nil, err
	}

	if err == nil || errors.Is(err, ErrUDPChecksum) || errors.Is(err, ErrWrongPort) {
		if seen, bad, due := d.udp.note(errors.Is(err, ErrUDPChecksum)); due {
			d.logger.Info("Bad UDP checksums seen", "bad", bad, "packets", seen)
		}
	}
	return dg, err
}
