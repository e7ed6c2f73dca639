package routing

import (
	"strconv"
	"strings"
)

// pitchNames lists the accepted spellings of each semitone, C first.
var pitchNames = [12][]string{
	{"c"},
	{"c#", "csharp", "db", "dflat"},
	{"d"},
	{"d#", "dsharp", "eb", "eflat"},
	{"e", "fb", "fflat"},
	{"f", "e#", "esharp"},
	{"f#", "fsharp", "gb", "gflat"},
	{"g"},
	{"g#", "gsharp", "ab", "aflat"},
	{"a"},
	{"a#", "asharp", "bb", "bflat"},
	{"b"},
}

// pitches maps a lower-case note name with octave (c4, csharp4, cneg1, c-1)
// to its MIDI key number. C4 is 60.
var pitches = func() map[string]int {
	out := map[string]int{}
	for octave := -1; octave <= 9; octave++ {
		suffixes := []string{strconv.Itoa(octave)}
		if octave < 0 {
			suffixes = append(suffixes, "neg"+strconv.Itoa(-octave))
		}
		for semitone, names := range pitchNames {
			key := (octave+1)*12 + semitone
			if key < 0 || key > 127 {
				continue
			}
			for _, n := range names {
				for _, s := range suffixes {
					out[n+s] = key
				}
			}
		}
	}
	return out
}()

// ParsePitch resolves a symbolic note name. Spaces and case are ignored.
func ParsePitch(name string) (int, bool) {
	key, ok := pitches[strings.ToLower(strings.ReplaceAll(name, " ", ""))]
	return key, ok
}
