package dmx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"midi2dmx/internal/wire"
)

var ErrMissingField = errors.New("decoded data needs channel and value")

// Translate turns a decoded payload into frames.
//
//	channel=5&value=255            one frame
//	channel=1,2,3&value=0          the value on every channel
//	channel=1,2,3&value=10,20      pairwise, the shorter list wins
//	channel=1,2,3,4,5,6&value=h;s;v
//	                               the color on every full group of three
//	channel=1,2,3,4&value=h;s;v,9  a triple takes three channels, a scalar one
func Translate(data wire.Values) ([]Frame, error) {
	chText, ok1 := data.Get("channel")
	valText, ok2 := data.Get("value")
	if !ok1 || !ok2 {
		return nil, ErrMissingField
	}

	if !strings.Contains(chText, ",") {
		ch, err := atoi("channel", chText)
		if err != nil {
			return nil, err
		}
		v, err := atoi("value", valText)
		if err != nil {
			return nil, err
		}
		return []Frame{NewFrame(ch, v)}, nil
	}

	channels, err := atoiList("channel", chText)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.Contains(valText, ";") && !strings.Contains(valText, ","):
		color, err := ParseHSV(valText)
		if err != nil {
			return nil, err
		}
		var frames []Frame
		for i := 0; i+3 <= len(channels); i += 3 {
			frames = append(frames, colorFrames(channels[i:i+3], color)...)
		}
		return frames, nil

	case strings.Contains(valText, ";"):
		return walkMixed(channels, strings.Split(valText, ","))

	case strings.Contains(valText, ","):
		values, err := atoiList("value", valText)
		if err != nil {
			return nil, err
		}
		n := len(channels)
		if len(values) < n {
			n = len(values)
		}
		frames := make([]Frame, n)
		for i := 0; i < n; i++ {
			frames[i] = NewFrame(channels[i], values[i])
		}
		return frames, nil
	}

	v, err := atoi("value", valText)
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, len(channels))
	for i, ch := range channels {
		frames[i] = NewFrame(ch, v)
	}
	return frames, nil
}

// walkMixed consumes channels left to right: three per HSV triple, one per
// scalar. It stops when either list runs out.
func walkMixed(channels []int, values []string) ([]Frame, error) {
	var frames []Frame
	next := 0
	for _, text := range values {
		if strings.Contains(text, ";") {
			if next+3 > len(channels) {
				break
			}
			color, err := ParseHSV(text)
			if err != nil {
				return nil, err
			}
			frames = append(frames, colorFrames(channels[next:next+3], color)...)
			next += 3
			continue
		}
		if next >= len(channels) {
			break
		}
		v, err := atoi("value", text)
		if err != nil {
			return nil, err
		}
		frames = append(frames, NewFrame(channels[next], v))
		next++
	}
	return frames, nil
}

func colorFrames(group []int, c ColorRGB) []Frame {
	return []Frame{
		NewFrame(group[0], c.R),
		NewFrame(group[1], c.G),
		NewFrame(group[2], c.B),
	}
}

func atoi(field, text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, text, err)
	}
	return n, nil
}

func atoiList(field, text string) ([]int, error) {
	parts := strings.Split(text, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := atoi(field, p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
