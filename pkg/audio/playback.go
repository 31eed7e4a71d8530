package audio

import (
	"sync"
	"time"
)

// Playback is a handle to audio that has been handed to the output device.
// Stop must be safe to call after the audio has already finished.
type Playback interface {
	Stop()
}

// Player starts immediate playback of a raw PCM16 buffer. onDone is called
// once when the buffer has been fully played (not when stopped early).
type Player interface {
	Play(pcm []byte, onDone func()) (Playback, error)
}

// Queue schedules agent speech fragments on a virtual timeline so they play
// back-to-back with no gaps and no overlap. Interrupt truncates everything
// in flight, which is required when the user barges in mid-utterance.
type Queue struct {
	player Player
	rate   int

	mu        sync.Mutex
	now       func() time.Time
	nextStart time.Time
	active    map[*chunk]struct{}
}

type chunk struct {
	timer    *time.Timer
	playback Playback
}

// NewQueue creates a playback queue for mono PCM16 at the given sample rate.
func NewQueue(player Player, sampleRate int) *Queue {
	return &Queue{
		player: player,
		rate:   sampleRate,
		now:    time.Now,
		active: make(map[*chunk]struct{}),
	}
}

// Enqueue schedules pcm at max(next start time, now) and advances the
// timeline by the chunk's duration. It returns the scheduled start time.
// Empty chunks are skipped.
func (q *Queue) Enqueue(pcm []byte) time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if len(pcm) == 0 {
		return now
	}

	start := q.nextStart
	if now.After(start) {
		start = now
	}
	q.nextStart = start.Add(Duration(pcm, q.rate))

	c := &chunk{}
	q.active[c] = struct{}{}
	c.timer = time.AfterFunc(start.Sub(now), func() { q.start(c, pcm) })
	return start
}

// start hands a due chunk to the player. The chunk may have been interrupted
// between scheduling and firing, in which case it is dropped.
func (q *Queue) start(c *chunk, pcm []byte) {
	q.mu.Lock()
	if _, ok := q.active[c]; !ok {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	p, err := q.player.Play(pcm, func() { q.remove(c) })
	if err != nil {
		q.remove(c)
		return
	}

	q.mu.Lock()
	if _, ok := q.active[c]; !ok {
		// Interrupted while the player was starting.
		q.mu.Unlock()
		p.Stop()
		return
	}
	c.playback = p
	q.mu.Unlock()
}

func (q *Queue) remove(c *chunk) {
	q.mu.Lock()
	delete(q.active, c)
	q.mu.Unlock()
}

// Interrupt stops every scheduled and playing chunk, clears the in-flight
// set, and resets the timeline to now. Without the reset, chunks scheduled
// in the future would play over the agent's next utterance.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	chunks := make([]*chunk, 0, len(q.active))
	for c := range q.active {
		chunks = append(chunks, c)
	}
	q.active = make(map[*chunk]struct{})
	q.nextStart = q.now()
	q.mu.Unlock()

	for _, c := range chunks {
		c.timer.Stop()
		if c.playback != nil {
			c.playback.Stop()
		}
	}
}

// Pending returns the number of chunks scheduled or playing.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}
