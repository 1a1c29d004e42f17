// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/vo_bridge/internal/session"
)

// RunGPSOrigin reads NMEA from a serial GPS receiver and feeds every valid
// GGA fix into origin until ctx is done.
func RunGPSOrigin(ctx context.Context, portName string, baud int, origin *session.GPSOrigin) error {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open %s: %w", portName, err)
	}
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()
	defer port.Close()
	log.Printf("gps: serial port opened on %s at %d baud", portName, baud)

	err = readGPSOrigin(port, origin, time.Now)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readGPSOrigin consumes NMEA lines from r until it fails.
func readGPSOrigin(r io.Reader, origin *session.GPSOrigin, now func() time.Time) error {
	reader := bufio.NewReader(r)
	haveFix := false

	for {
		line, err := reader.ReadString('\n')
		if o, ok := originFromSentence(line); ok {
			origin.Update(o, now())
			if !haveFix {
				log.Printf("gps: first fix lat=%.6f lon=%.6f alt=%.1fm", o.Latitude, o.Longitude, o.Altitude)
				haveFix = true
			}
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
}

// originFromSentence extracts a position from a GGA sentence with a fix.
// Anything else, including noise and partial lines, yields false.
func originFromSentence(line string) (session.Origin, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return session.Origin{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return session.Origin{}, false
	}

	gga, ok := sentence.(nmea.GGA)
	if !ok || gga.FixQuality == nmea.Invalid {
		return session.Origin{}, false
	}
	return session.Origin{
		Latitude:  gga.Latitude,
		Longitude: gga.Longitude,
		Altitude:  gga.Altitude,
	}, true
}
