package flowengine

import (
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/go-mp3"
)

// TrackMetadataCallback reports the track now playing so the panel can show
// it.
type TrackMetadataCallback func(song, artist string)

// SoundtrackPlayer loops over the MP3 files in a directory in random order,
// playing them through the shared ebiten audio context. Purely ambient; the
// animation runs fine without it.
type SoundtrackPlayer struct {
	Dir        string
	OnMetadata TrackMetadataCallback

	audioContext *audio.Context
	stopChan     chan struct{}
	stoppedChan  chan struct{}
	stopping     bool
}

func NewSoundtrackPlayer(dir string, onMetadata TrackMetadataCallback) *SoundtrackPlayer {
	return &SoundtrackPlayer{
		Dir:         dir,
		OnMetadata:  onMetadata,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Shutdown fades out the current track and waits for the loop to exit.
func (p *SoundtrackPlayer) Shutdown() {
	p.stopping = true
	close(p.stopChan)
	<-p.stoppedChan
	log.Println("Soundtrack player stopped.")
}

// Start launches the playback loop on its own goroutine.
func (p *SoundtrackPlayer) Start() {
	go func() {
		defer close(p.stoppedChan)
		for {
			select {
			case <-p.stopChan:
				return
			default:
			}

			tracks, err := p.findTracks()
			if err != nil || len(tracks) == 0 {
				if err != nil {
					log.Printf("Failed to read soundtrack directory: %v", err)
				}
				select {
				case <-time.After(5 * time.Second):
				case <-p.stopChan:
					return
				}
				continue
			}

			path := tracks[rand.Intn(len(tracks))]
			if err := p.playTrack(path); err != nil {
				log.Printf("Failed to play track %s: %v", path, err)
				select {
				case <-time.After(5 * time.Second):
				case <-p.stopChan:
					return
				}
			}
			if p.stopping {
				return
			}
		}
	}()
}

func (p *SoundtrackPlayer) findTracks() ([]string, error) {
	var tracks []string
	err := filepath.Walk(p.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".mp3") {
			tracks = append(tracks, path)
		}
		return nil
	})
	return tracks, err
}

func (p *SoundtrackPlayer) playTrack(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing track file: %v", err)
		}
	}()

	var artist, song string
	if m, err := tag.ReadFrom(f); err == nil {
		artist = m.Artist()
		song = m.Title()
	}
	if song == "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		song = base
		if parts := strings.SplitN(base, " - ", 2); len(parts) == 2 {
			song, artist = parts[0], parts[1]
		}
	}
	if p.OnMetadata != nil {
		p.OnMetadata(song, artist)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	d, err := mp3.NewDecoder(f)
	if err != nil {
		return err
	}

	if p.audioContext == nil {
		p.audioContext = audio.NewContext(44100)
	}
	player, err := p.audioContext.NewPlayer(d)
	if err != nil {
		return err
	}
	player.Play()
	log.Printf("Playing: %s", path)

	const fadeDuration = 5 * time.Second
	totalBytes := d.Length()
	duration := time.Duration(totalBytes) * time.Second / time.Duration(d.SampleRate()*4)
	startTime := time.Now()
	var stoppingAt time.Time
	for player.IsPlaying() {
		if p.stopping && stoppingAt.IsZero() {
			stoppingAt = time.Now()
		}

		remaining := duration - time.Since(startTime)
		vol := 1.0
		if remaining <= fadeDuration {
			vol = float64(remaining) / float64(fadeDuration)
		}
		if !stoppingAt.IsZero() {
			stopVol := 1.0 - float64(time.Since(stoppingAt))/float64(fadeDuration)
			if stopVol < vol {
				vol = stopVol
			}
			if stopVol <= 0 {
				break
			}
		}
		if vol < 0 {
			vol = 0
		}
		player.SetVolume(vol)

		if remaining <= 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return player.Close()
}
