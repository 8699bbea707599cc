// Package serialio opens the bridge's serial links and turns their raw byte
// streams into text lines.
package serialio

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// AutoPath asks the Opener to pick the first unclaimed USB serial device.
const AutoPath = "auto"

// Port is the transport the bridge needs from a serial link. Reads must not
// block: a read with nothing pending returns 0 bytes and a nil error.
type Port interface {
	io.ReadWriteCloser
	// Flush blocks until everything written has been transmitted.
	Flush() error
}

// PortConfig names one serial device.
type PortConfig struct {
	PortPath string `yaml:"port_path"` // e.g. /dev/ttyACM0 or "auto"
	BaudRate int    `yaml:"baud_rate"`
}

// preferredVIDs are USB vendor IDs of common Arduino boards and USB-UART bridges.
var preferredVIDs = map[string]bool{
	"2341": true, // Arduino
	"2A03": true, // Arduino.org
	"1A86": true, // WCH CH340
	"0403": true, // FTDI
	"10C4": true, // Silicon Labs CP210x
}

// Opener opens serial ports and remembers which device paths it has handed
// out, so several "auto" ports resolve to distinct devices.
type Opener struct {
	claimed map[string]bool
	list    func() ([]*enumerator.PortDetails, error)
	open    func(path string, mode *serial.Mode) (serial.Port, error)
}

// NewOpener returns an Opener backed by the host's serial devices.
func NewOpener() *Opener {
	return &Opener{
		claimed: make(map[string]bool),
		list:    enumerator.GetDetailedPortsList,
		open:    serial.Open,
	}
}

// Resolve maps a configured port path to a device path. Explicit paths are
// returned unchanged; AutoPath selects the first unclaimed USB device,
// preferring known Arduino vendor IDs.
func (o *Opener) Resolve(path string) (string, error) {
	if path != AutoPath {
		return path, nil
	}
	ports, err := o.list()
	if err != nil {
		return "", fmt.Errorf("serialio: enumerate ports: %w", err)
	}
	var usb []*enumerator.PortDetails
	for _, p := range ports {
		if p.IsUSB && !o.claimed[p.Name] {
			usb = append(usb, p)
		}
	}
	if len(usb) == 0 {
		return "", fmt.Errorf("serialio: no unclaimed USB serial port found")
	}
	sort.SliceStable(usb, func(i, j int) bool {
		return preferredVIDs[strings.ToUpper(usb[i].VID)] && !preferredVIDs[strings.ToUpper(usb[j].VID)]
	})
	return usb[0].Name, nil
}

// Open resolves and opens a port in poll mode (zero read timeout) and
// flushes it once before returning.
func (o *Opener) Open(cfg PortConfig) (Port, error) {
	path, err := o.Resolve(cfg.PortPath)
	if err != nil {
		return nil, err
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := o.open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serialio: failed to open %s with baudrate %d: %w", path, cfg.BaudRate, err)
	}
	if err := sp.SetReadTimeout(0); err != nil {
		sp.Close()
		return nil, fmt.Errorf("serialio: failed to set poll mode on %s: %w", path, err)
	}
	p := &nativePort{Port: sp}
	if err := p.Flush(); err != nil {
		sp.Close()
		return nil, fmt.Errorf("serialio: flush %s: %w", path, err)
	}
	o.claimed[path] = true
	log.Printf("[serial] opened %s at %d baud", path, cfg.BaudRate)
	return p, nil
}

// nativePort adapts a go.bug.st serial port to Port.
type nativePort struct {
	serial.Port
}

func (p *nativePort) Flush() error { return p.Port.Drain() }
