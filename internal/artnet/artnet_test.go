package artnet

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Haba1234/go-artnet"
	"midi2dmx/internal/dmx"
	"midi2dmx/internal/logger"
)

type fakeSender struct {
	mu      sync.Mutex
	started bool
	stopped bool
	sent    []Universe
	addr    artnet.Address
}

func (s *fakeSender) Start() error {
	s.started = true
	return nil
}

func (s *fakeSender) Stop() { s.stopped = true }

func (s *fakeSender) SendDMXToAddress(data [512]byte, address artnet.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
	s.addr = address
}

func (s *fakeSender) last() (Universe, artnet.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return Universe{}, artnet.Address{}, false
	}
	return s.sent[len(s.sent)-1], s.addr, true
}

func TestOutputWritesUniverse(t *testing.T) {
	s := &fakeSender{}
	sent := 0
	out := NewOutput(logger.NewDiscard(), s, OutputConf{Universe: 0x0102, OnSent: func() { sent++ }})

	if err := out.WriteFrame(dmx.NewFrame(1, 10)); !errors.Is(err, dmx.ErrClosed) {
		t.Fatalf("WriteFrame() before Start error = %v, want ErrClosed", err)
	}
	if err := out.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, f := range []dmx.Frame{dmx.NewFrame(1, 10), dmx.NewFrame(512, 300)} {
		if err := out.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame(%s) error = %v", f, err)
		}
	}
	if err := out.WriteFrame(dmx.NewFrame(513, 1)); !errors.Is(err, ErrChannelRange) {
		t.Errorf("WriteFrame(513) error = %v, want ErrChannelRange", err)
	}
	if sent != 2 {
		t.Errorf("sent notifications = %d, want 2", sent)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		u, addr, ok := s.last()
		if ok && u[0] == 10 && u[511] == 44 {
			if addr.Net != 1 || addr.SubUni != 2 {
				t.Errorf("address = %+v, want net 1 subuni 2", addr)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("universe not sent, last = %v", u[:4])
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := out.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !s.started || !s.stopped || out.IsOpen() {
		t.Errorf("sender started=%v stopped=%v open=%v", s.started, s.stopped, out.IsOpen())
	}
}

func TestState(t *testing.T) {
	s := NewState()
	s.SetChannel(1, 0, 255)
	s.SetChannel(1, 5, 7)
	s.SetChannel(2, 511, 1)

	if u := s.Universe(2); u[511] != 1 {
		t.Errorf("universe 2 channel 511 = %d, want 1", u[511])
	}
	u := s.Universe(1)
	if u[0] != 255 || u[5] != 7 {
		t.Errorf("universe 1 = %v", u[:6])
	}
	u[0] = 0
	if s.Universe(1)[0] != 255 {
		t.Error("Universe() returned shared storage")
	}
}

func TestMatchIP(t *testing.T) {
	_, cidr, _ := net.ParseCIDR("192.168.6.0/24")
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
		&net.IPNet{IP: net.ParseIP("10.0.0.2").To4(), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("192.168.6.20").To4(), Mask: net.CIDRMask(24, 32)},
	}
	if got := matchIP(cidr, addrs); !got.Equal(net.ParseIP("192.168.6.20")) {
		t.Errorf("matchIP() = %v", got)
	}
	if got := matchIP(cidr, addrs[:2]); got != nil {
		t.Errorf("matchIP() = %v, want nil", got)
	}
}

func TestFindArtNetIPBadRange(t *testing.T) {
	if _, err := FindArtNetIP("not a cidr"); err == nil {
		t.Error("FindArtNetIP() succeeded")
	}
}

func TestUniverseToAddress(t *testing.T) {
	a := universeToAddress(0x0305)
	if a.Net != 3 || a.SubUni != 5 {
		t.Errorf("universeToAddress() = %+v", a)
	}
}
