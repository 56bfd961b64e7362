// internal/activity/session.go
//
// Learner sessions.
// Responsibilities:
//   - Factory: build a Session per learner from the shared content.
//   - Session: own the event loop, the scene sequencer, the reactive runtime
//     with the view components and the App root, and the mounted container.
//   - Restore saved progress on creation; persist it when the scene changes.
//
// All session state is touched on the session's loop only. Public methods post
// to the loop and wait.

package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wholepart/internal/content"
	"github.com/robalobadob/wholepart/internal/progress"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/ui"
	"github.com/robalobadob/wholepart/internal/view"
)

// App is the root component mounted into every session container.
const App = "App"

// ProgressStore persists learner snapshots.
type ProgressStore interface {
	Save(ctx context.Context, snap progress.Snapshot) error
	Load(ctx context.Context, owner string) (progress.Snapshot, error)
}

// Options are shared by every session a Factory creates.
type Options struct {
	Scenes      []scene.Descriptor
	Content     *content.Store
	Assets      *content.Assets
	Progress    ProgressStore // nil disables persistence
	AutoAdvance time.Duration // <= 0 disables timed advances
	SaveTimeout time.Duration

	// Timer overrides the loop timer (tests).
	Timer func(*Loop) scene.Timer
}

type Factory struct {
	opts  Options
	langs []string
}

func NewFactory(opts Options) (*Factory, error) {
	if opts.Content == nil {
		return nil, errors.New("activity: content store required")
	}
	if err := scene.Validate(opts.Scenes); err != nil {
		return nil, fmt.Errorf("activity: %w", err)
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 5 * time.Second
	}
	f := &Factory{opts: opts}
	for _, tag := range opts.Content.Languages() {
		f.langs = append(f.langs, tag.String())
	}
	return f, nil
}

// Languages lists the catalogs learners can switch between, default first.
func (f *Factory) Languages() []string { return f.langs }

// New creates a session for owner, restores the owner's saved progress, and
// mounts the App. An empty lang uses the saved or default language.
func (f *Factory) New(ctx context.Context, owner, lang string) (*Session, error) {
	o := f.opts
	loop := NewLoop()
	timer := loop.Timer()
	if o.Timer != nil {
		timer = o.Timer(loop)
	}
	rt := ui.New(ui.WithScheduler(ui.SchedulerFunc(func(flush func()) { loop.Post(flush) })))
	if err := view.Register(rt); err != nil {
		loop.Stop()
		return nil, err
	}
	ui.MustRegister(rt, App, renderApp)

	s := &Session{
		id:          uuid.NewString(),
		owner:       owner,
		loop:        loop,
		rt:          rt,
		timer:       timer,
		content:     o.Content,
		assets:      o.Assets,
		languages:   f.langs,
		progress:    o.Progress,
		autoAdvance: o.AutoAdvance,
		saveTimeout: o.SaveTimeout,
		started:     time.Now().UTC(),
	}
	s.seq = scene.New(o.Scenes, scene.WithTimer(timer), scene.WithAutoAdvance(o.AutoAdvance))
	s.touch()

	restore := -1
	if s.progress != nil && owner != "" {
		snap, err := s.progress.Load(ctx, owner)
		switch {
		case err == nil:
			restore = snap.CurrentIndex
			if !snap.StartedAt.IsZero() {
				s.started = snap.StartedAt
			}
			if lang == "" {
				lang = snap.Lang
			}
		case !errors.Is(err, progress.ErrNotFound):
			log.Warn().Err(err).Str("owner", owner).Msg("load progress")
		}
	}
	if lang == "" {
		lang = o.Content.Default().String()
	}
	s.lang = lang
	s.loc = o.Content.For(lang)

	err := loop.Do(ctx, func() error {
		if restore >= 0 {
			s.seq.Restore(restore)
		}
		s.sceneIndex = s.seq.Index()
		return rt.RenderInto(App, s, &s.out)
	})
	if err != nil {
		loop.Stop()
		return nil, err
	}
	log.Info().Str("session", s.id).Str("owner", owner).Int("index", s.seq.Index()).Msg("session started")
	return s, nil
}

// Session is one learner working through the activity.
type Session struct {
	id    string
	owner string
	lang  string

	loop    *Loop
	seq     *scene.Sequencer
	rt      *ui.Runtime
	timer   scene.Timer
	out     tee
	content *content.Store
	loc     *content.Localizer
	assets  *content.Assets

	languages   []string
	autoAdvance time.Duration

	// gesture state, reset whenever the scene index changes
	gesture    gestureState
	sceneIndex int
	countEpoch uint64
	countTimer scene.Stopper

	invalidate func()

	progress     ProgressStore
	saveTimeout  time.Duration
	started      time.Time
	saveVersion  uint64
	saveMu       sync.Mutex
	savedVersion uint64
	saves        sync.WaitGroup

	lastSeen  atomic.Int64
	closeOnce sync.Once
}

func (s *Session) ID() string { return s.id }

// Owner is the learner or account the session saves progress for.
func (s *Session) Owner(ctx context.Context) (string, error) {
	var owner string
	err := s.loop.Do(ctx, func() error {
		owner = s.owner
		return nil
	})
	return owner, err
}

// SetOwner rebinds the session after login or signup and saves under the new
// owner.
func (s *Session) SetOwner(ctx context.Context, owner string) error {
	return s.loop.Do(ctx, func() error {
		if s.owner == owner {
			return nil
		}
		s.owner = owner
		s.persist()
		return nil
	})
}

// Index is the current scene index.
func (s *Session) Index() int { return s.seq.Index() }

// Len is the number of scenes.
func (s *Session) Len() int { return s.seq.Len() }

// LastSeen is the time of the last dispatched action or read.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

func (s *Session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

// Dispatch applies a learner action. Re-rendering happens on the following
// loop tick; Markup called afterwards observes it.
func (s *Session) Dispatch(ctx context.Context, a Action) error {
	s.touch()
	return s.loop.Do(ctx, func() error { return s.apply(a) })
}

// Markup returns the container's current markup after pending renders.
func (s *Session) Markup(ctx context.Context) (string, error) {
	s.touch()
	var markup string
	err := s.loop.Do(ctx, func() error {
		markup = s.out.buf.Markup()
		return nil
	})
	return markup, err
}

// Attach adds a live container (a websocket) that receives every render, and
// writes the current markup to it. The returned func detaches it.
func (s *Session) Attach(ctx context.Context, c ui.Container) (func(), error) {
	s.touch()
	err := s.loop.Do(ctx, func() error {
		s.out.attach(c)
		return c.Replace(s.out.buf.Markup())
	})
	if err != nil {
		s.out.detach(c)
		return func() {}, err
	}
	return func() { s.out.detach(c) }, nil
}

// Snapshot returns the learner's progress as it would be saved.
func (s *Session) Snapshot(ctx context.Context) (progress.Snapshot, error) {
	var snap progress.Snapshot
	err := s.loop.Do(ctx, func() error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// Close unmounts the App (running effect cleanups), stops the loop, and waits
// for in-flight saves.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.loop.Do(ctx, func() error {
			s.cancelCount()
			s.rt.Unmount(App)
			return nil
		})
		s.loop.Stop()
		s.saves.Wait()
		log.Debug().Str("session", s.id).Msg("session closed")
	})
}

// props builds the Screen props from the current state.
func (s *Session) props() view.Props {
	return view.Props{
		Scene:     s.seq.Current(),
		Index:     s.seq.Index(),
		Total:     s.seq.Len(),
		CanGoPrev: s.seq.CanGoPrev(),
		CanGoNext: s.seq.CanGoNext(),
		Loc:       s.loc,
		Assets:    s.assets,
		Gesture:   s.gesture.view(s.loc),
		Languages: s.languages,
	}
}

// syncScene resets gesture state after the scene index changed.
func (s *Session) syncScene() {
	if i := s.seq.Index(); i != s.sceneIndex {
		s.sceneIndex = i
		s.gesture = gestureState{}
		s.cancelCount()
	}
}

func (s *Session) rerender() {
	if s.invalidate != nil {
		s.invalidate()
	}
}

func (s *Session) snapshot() progress.Snapshot {
	return progress.Snapshot{
		OwnerID:           s.owner,
		CurrentIndex:      s.seq.Index(),
		CompletedSceneIDs: s.seq.CompletedIDs(),
		Lang:              s.lang,
		StartedAt:         s.started,
		UpdatedAt:         time.Now().UTC(),
	}
}

// persist saves the current snapshot in the background. Older saves that
// finish late never overwrite newer ones.
func (s *Session) persist() {
	if s.progress == nil || s.owner == "" {
		return
	}
	snap := s.snapshot()
	s.saveVersion++
	version := s.saveVersion
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if version <= s.savedVersion {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
		defer cancel()
		if err := s.progress.Save(ctx, snap); err != nil {
			log.Warn().Err(err).Str("session", s.id).Str("owner", snap.OwnerID).Msg("save progress")
			return
		}
		s.savedVersion = version
	}()
}

// renderApp is the root component: it subscribes to the sequencer, saves
// progress when the scene changes, and renders the Screen.
func renderApp(c *ui.Ctx, s *Session) *ui.Node {
	_, setRevision := ui.UseState(c, s.seq.Revision())
	_, bump := ui.UseReducer(c, 0)
	saved := ui.UseRef(c, s.seq.Index())

	ui.UseEffect(c, func() func() {
		id := s.seq.AddListener(func(scene.Descriptor) {
			s.syncScene()
			setRevision(s.seq.Revision())
		})
		return func() { s.seq.RemoveListener(id) }
	}, ui.Deps(s.seq))

	index := s.seq.Index()
	ui.UseEffect(c, func() func() {
		if saved.Current != index {
			saved.Current = index
			s.persist()
		}
		return nil
	}, ui.Deps(index))

	s.invalidate = func() { bump(func(n int) int { return n + 1 }) }
	return c.Render(view.Screen, s.props())
}
