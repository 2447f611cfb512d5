package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/beeep"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/skratchdot/open-golang/open"
)

// AudioManager plays short feedback cues: a success cue after a hotkey
// assignment commits and an error cue on conflicts and failed reads.
// Cues are either the built-in beeps or user-supplied MP3 files.
type AudioManager struct {
	enabled      bool
	successSound string
	errorSound   string
	log          *LogManager
}

// NewAudioManager creates a new audio manager
func NewAudioManager(config *Config, log *LogManager) *AudioManager {
	return &AudioManager{
		enabled:      config.Audio.Enabled,
		successSound: config.Audio.SuccessSound,
		errorSound:   config.Audio.ErrorSound,
		log:          log,
	}
}

// PlaySuccessSound plays the success cue
func (am *AudioManager) PlaySuccessSound() {
	am.play(am.successSound, beeep.DefaultFreq, 200)
}

// PlayErrorSound plays the error cue
func (am *AudioManager) PlayErrorSound() {
	am.play(am.errorSound, 220.0, 400)
}

// play dispatches a cue name to the built-in beep or an MP3 file
func (am *AudioManager) play(sound string, freq float64, durationMs int) {
	if !am.enabled {
		return
	}

	if strings.HasSuffix(strings.ToLower(sound), ".mp3") {
		if err := am.playMP3(sound); err != nil {
			am.log.LogWarning("Failed to play cue file, falling back to beep", "file", sound, "error", err.Error())
		} else {
			return
		}
	}

	if err := beeep.Beep(freq, durationMs); err != nil {
		am.log.LogWarning("Failed to play beep", "error", err.Error())
	}
}

// playMP3 decodes an MP3 cue to a temporary WAV and hands it to the
// system player. Cue files are short; decoding whole files is fine.
func (am *AudioManager) playMP3(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return fmt.Errorf("invalid mp3: %v", err)
	}

	wavPath := filepath.Join(os.TempDir(), "gametextreader_cue.wav")
	out, err := os.Create(wavPath)
	if err != nil {
		return err
	}

	if err := writeWAV(out, decoder, decoder.SampleRate()); err != nil {
		out.Close()
		return err
	}
	out.Close()

	return open.Start(wavPath)
}

// writeWAV wraps 16-bit stereo PCM from r into a RIFF/WAVE container
func writeWAV(w io.WriteSeeker, r io.Reader, sampleRate int) error {
	// Header with placeholder sizes, patched after the copy
	header := []interface{}{
		[]byte("RIFF"), uint32(0), []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(2),
		uint32(sampleRate), uint32(sampleRate * 4), uint16(4), uint16(16),
		[]byte("data"), uint32(0),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	n, err := io.Copy(w, r)
	if err != nil {
		return err
	}

	if _, err := w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36+n)); err != nil {
		return err
	}
	if _, err := w.Seek(40, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint32(n))
}
