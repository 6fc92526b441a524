package transport

import (
	"fmt"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// The serial firmware frames telemetry as NMEA sentences with talker
// "IM", which buys the standard "$...*hh" checksum for free:
//
//	$IMACC,<x>,<y>,<z>*hh   accel, g
//	$IMGYR,<x>,<y>,<z>*hh   gyro, °/s
//	$IMMAG,<x>,<y>,<z>*hh   mag, µT
//	$IMEUL,<r>,<p>,<y>*hh   gyro-integrated euler, deg
//	$IMFUS,<r>,<p>,<y>*hh   fusion euler, deg
//	$IMFUM,<r>,<p>,<y>*hh   magnetometer-aided fusion euler, deg
//	$IMTMP,<t>*hh           temperature, °C
//	$IMCLK,<t>*hh           device time, s
//	$IMERR,<message>*hh     device-reported fault
const (
	sentenceAccel          = "ACC"
	sentenceGyro           = "GYR"
	sentenceMag            = "MAG"
	sentenceGyroIntegrated = "EUL"
	sentenceFusion         = "FUS"
	sentenceFusionMag      = "FUM"
	sentenceTemperature    = "TMP"
	sentenceClock          = "CLK"
	sentenceFault          = "ERR"
)

// tripleSentence carries any of the three-component groups; the
// concrete group is the sentence type.
type tripleSentence struct {
	nmea.BaseSentence
	A, B, C float64
}

type scalarSentence struct {
	nmea.BaseSentence
	Value float64
}

type faultSentence struct {
	nmea.BaseSentence
	Message string
}

func parseTriple(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	return tripleSentence{
		BaseSentence: s,
		A:            p.Float64(0, "first component"),
		B:            p.Float64(1, "second component"),
		C:            p.Float64(2, "third component"),
	}, p.Err()
}

func parseScalar(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	return scalarSentence{
		BaseSentence: s,
		Value:        p.Float64(0, "value"),
	}, p.Err()
}

func parseFault(s nmea.BaseSentence) (nmea.Sentence, error) {
	return faultSentence{
		BaseSentence: s,
		Message:      strings.Join(s.Fields, ","),
	}, nil
}

func init() {
	for _, t := range []string{
		sentenceAccel, sentenceGyro, sentenceMag,
		sentenceGyroIntegrated, sentenceFusion, sentenceFusionMag,
	} {
		nmea.MustRegisterParser(t, parseTriple)
	}
	nmea.MustRegisterParser(sentenceTemperature, parseScalar)
	nmea.MustRegisterParser(sentenceClock, parseScalar)
	nmea.MustRegisterParser(sentenceFault, parseFault)
}

// applyLine parses one serial line and routes it into the handler.
// It reports false for lines the device contract does not cover
// (bad checksum, unknown type, wrong field count); such lines are
// dropped by the caller.
func applyLine(line string, h Handler) bool {
	sent, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return false
	}
	if sent.TalkerID() != "IM" {
		return false
	}

	switch v := sent.(type) {
	case tripleSentence:
		switch v.Type {
		case sentenceAccel:
			h.SetAccel(telemetry.Vec3{X: v.A, Y: v.B, Z: v.C})
		case sentenceGyro:
			h.SetGyro(telemetry.Vec3{X: v.A, Y: v.B, Z: v.C})
		case sentenceMag:
			h.SetMag(telemetry.Vec3{X: v.A, Y: v.B, Z: v.C})
		case sentenceGyroIntegrated:
			h.SetGyroIntegrated(telemetry.Euler{Roll: v.A, Pitch: v.B, Yaw: v.C})
		case sentenceFusion:
			h.SetFusion(telemetry.Euler{Roll: v.A, Pitch: v.B, Yaw: v.C})
		case sentenceFusionMag:
			h.SetFusionMag(telemetry.Euler{Roll: v.A, Pitch: v.B, Yaw: v.C})
		default:
			return false
		}
		return true
	case scalarSentence:
		switch v.Type {
		case sentenceTemperature:
			h.SetTemperature(v.Value)
		case sentenceClock:
			h.SetDeviceTime(v.Value)
		default:
			return false
		}
		return true
	case faultSentence:
		h.DeviceFault(v.Message)
		return true
	}
	return false
}

// encodeSentence builds a checksummed device sentence from raw field
// strings. The tests produce wire-exact lines with it.
func encodeSentence(typ string, fields ...string) string {
	body := "IM" + typ
	if len(fields) > 0 {
		body += "," + strings.Join(fields, ",")
	}
	return fmt.Sprintf("$%s*%02X", body, xorChecksum(body))
}

func encodeTriple(typ string, a, b, c float64) string {
	return encodeSentence(typ, formatFloat(a), formatFloat(b), formatFloat(c))
}

func encodeScalar(typ string, v float64) string {
	return encodeSentence(typ, formatFloat(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func xorChecksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}
