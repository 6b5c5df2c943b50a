//go:build linux

package hotkey

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bobersnip/TextShortcutter/internal/keys"
	"github.com/bobersnip/TextShortcutter/internal/logging"
)

// inputEvent matches the Linux input_event struct.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

const (
	evSyn = 0
	evKey = 1

	synReport  = 0
	synDropped = 3

	keyMax       = 0x2ff
	keyBitmapLen = (keyMax + 8) / 8

	// eviocgkey is EVIOCGKEY(keyBitmapLen): _IOC(_IOC_READ, 'E', 0x18, len).
	eviocgkey uintptr = 2<<30 | keyBitmapLen<<16 | 'E'<<8 | 0x18
)

var eventSize = binary.Size(inputEvent{})

// EvdevSource reads every keyboard under /dev/input. The user needs read
// access to the devices, usually through the input group.
type EvdevSource struct {
	devicesPath string
	byIDGlob    string
}

// NewSystemSource returns the platform key-event source.
func NewSystemSource() Source {
	return &EvdevSource{
		devicesPath: "/proc/bus/input/devices",
		byIDGlob:    "/dev/input/by-id/*-kbd",
	}
}

// Available checks if we can read input devices.
func (s *EvdevSource) Available() (bool, string) {
	devices, err := s.keyboards()
	if err != nil {
		return false, fmt.Sprintf("cannot find keyboard devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}
	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, fmt.Sprintf("found keyboard device: %s", dev)
		}
	}
	return false, "cannot read keyboard devices (need to be in 'input' group or run as root)"
}

func (s *EvdevSource) keyboards() ([]string, error) {
	f, err := os.Open(s.devicesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	devices := parseKeyboards(f)

	matches, _ := filepath.Glob(s.byIDGlob)
	for _, m := range matches {
		if target, err := filepath.EvalSymlinks(m); err == nil {
			devices = appendUnique(devices, target)
		}
	}
	return devices, nil
}

// parseKeyboards extracts event device paths with key capabilities from
// /proc/bus/input/devices.
func parseKeyboards(r io.Reader) []string {
	var devices []string
	scanner := bufio.NewScanner(r)
	var handler string
	isKeyboard := false

	flush := func() {
		if isKeyboard && handler != "" {
			devices = appendUnique(devices, handler)
		}
		handler, isKeyboard = "", false
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					handler = "/dev/input/" + part
				}
			}
		case strings.HasPrefix(line, "B: KEY="):
			// Power buttons and lid switches report a short KEY bitmap.
			isKeyboard = len(strings.Fields(strings.TrimPrefix(line, "B: KEY="))) >= 3
		case line == "":
			flush()
		}
	}
	flush()
	return devices
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Events opens every readable keyboard and merges their key events.
func (s *EvdevSource) Events(ctx context.Context) (<-chan KeyEvent, error) {
	devices, err := s.keyboards()
	if err != nil || len(devices) == 0 {
		return nil, ErrNotAvailable
	}

	var files []*os.File
	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err != nil {
			logging.Debugf("skipping %s: %v", dev, err)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no readable keyboard device", ErrNotAvailable)
	}

	out := make(chan KeyEvent, 64)
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			readDevice(ctx, f, func() ([]KeyEvent, error) { return heldKeys(f) }, out)
		}()
	}
	go func() {
		<-ctx.Done()
		for _, f := range files {
			f.Close()
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// readDevice forwards key events from one device. When the kernel reports
// lost events, or the device goes away, it sends a KeyResync so the detector
// starts from the real key state instead of a stale one. held reads that
// state; it may be nil.
func readDevice(ctx context.Context, r io.Reader, held func() ([]KeyEvent, error), out chan<- KeyEvent) {
	send := func(ev KeyEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	buf := make([]byte, eventSize)
	dropping := false
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if ctx.Err() == nil {
				logging.Warnf("keyboard device read failed: %v", err)
				send(KeyEvent{State: KeyResync})
			}
			return
		}

		typ, code, value := decodeRaw(buf)
		switch {
		case typ == evSyn && code == synDropped:
			// Everything up to the next SYN_REPORT is incomplete.
			dropping = true
			if !send(KeyEvent{State: KeyResync}) {
				return
			}
		case typ == evSyn && code == synReport && dropping:
			dropping = false
			resync := KeyEvent{State: KeyResync}
			if held != nil {
				var err error
				if resync.Held, err = held(); err != nil {
					logging.Debugf("reading key state failed: %v", err)
				}
			}
			if !send(resync) {
				return
			}
		case typ == evKey && !dropping:
			if !send(keyEvent(code, value)) {
				return
			}
		}
	}
}

func decodeRaw(buf []byte) (typ, code uint16, value int32) {
	off := len(buf) - 8
	typ = binary.LittleEndian.Uint16(buf[off : off+2])
	code = binary.LittleEndian.Uint16(buf[off+2 : off+4])
	value = int32(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
	return typ, code, value
}

// decodeEvent parses one input_event. Only EV_KEY events are kept.
func decodeEvent(buf []byte) (KeyEvent, bool) {
	typ, code, value := decodeRaw(buf)
	if typ != evKey {
		return KeyEvent{}, false
	}
	return keyEvent(code, value), true
}

func keyEvent(code uint16, value int32) KeyEvent {
	ev := KeyEvent{Code: code}
	ev.Key, _ = keys.FromEvdev(code)
	switch value {
	case 0:
		ev.State = KeyUp
	case 1:
		ev.State = KeyDown
	default:
		ev.State = KeyRepeat
	}
	return ev
}

// heldKeys asks the device which keys are down right now (EVIOCGKEY).
func heldKeys(f *os.File) ([]KeyEvent, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	bits := make([]byte, keyBitmapLen)
	var errno syscall.Errno
	if err := rc.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, eviocgkey, uintptr(unsafe.Pointer(&bits[0])))
	}); err != nil {
		return nil, err
	}
	if errno != 0 {
		return nil, fmt.Errorf("EVIOCGKEY: %w", errno)
	}
	return heldFromBitmap(bits), nil
}

func heldFromBitmap(bits []byte) []KeyEvent {
	var held []KeyEvent
	for i, b := range bits {
		for j := 0; j < 8; j++ {
			if b&(1<<j) != 0 {
				held = append(held, keyEvent(uint16(i*8+j), 1))
			}
		}
	}
	return held
}
