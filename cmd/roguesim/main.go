// Command roguesim drives a small monster simulation on the ECS runtime:
// it spawns monsters, runs a few scheduler ticks, saves a snapshot and
// reloads it into a fresh world.
//
//	go run ./cmd/roguesim -config roguesim.toml -ticks 100 -profile cpu
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/profile"
	"go.uber.org/zap"

	ecs "github.com/R-N-J/web-test-1-sub000"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

const (
	positionID ecs.ComponentID = iota
	velocityID
	healthID
	huntsID
)

type components struct {
	position ecs.Component[Position]
	velocity ecs.Component[Velocity]
	health   ecs.Component[Health]
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; flags default from it.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("ROGUESIM_CONFIG"), "path to a TOML world config")
	ticks := flag.Int("ticks", envInt("ROGUESIM_TICKS", 60), "number of ticks to simulate")
	monsters := flag.Int("monsters", envInt("ROGUESIM_MONSTERS", 200), "monsters to spawn")
	seed := flag.Int64("seed", 1, "random seed")
	profileMode := flag.String("profile", "", "profile mode: cpu or mem")
	out := flag.String("out", "", "write the final snapshot to this file")
	flag.Parse()

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	cfg := ecs.DefaultConfig()
	if *configPath != "" {
		loaded, err := ecs.LoadConfig(*configPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err == nil {
			cfg = loaded
		}
	}

	log, err := ecs.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	w, c, err := newWorld(cfg, log)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(*seed))
	if err := spawn(w, c, rng, *monsters); err != nil {
		return err
	}
	if err := addSystems(w, c); err != nil {
		return err
	}

	start := time.Now()
	dt := time.Second / 30
	for i := 0; i < *ticks; i++ {
		if err := w.Update(dt); err != nil {
			log.Warn("tick failed", zap.Int("tick", i), zap.Error(err))
		}
	}
	log.Info("simulation finished",
		zap.Int("ticks", *ticks),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("alive", w.Len()),
		zap.Int("archetypes", len(w.Archetypes())),
	)

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		return err
	}
	if *out != "" {
		if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	reloaded, _, err := newWorld(cfg, log)
	if err != nil {
		return err
	}
	if err := reloaded.Load(bytes.NewReader(buf.Bytes())); err != nil {
		return err
	}
	fmt.Printf("alive %d, moving %d, hunting %d (reloaded %d)\n",
		w.Len(),
		w.Count(ecs.AllOf(positionID, velocityID)),
		w.Count(ecs.AllOf(huntsID)),
		reloaded.Len(),
	)
	return nil
}

func newWorld(cfg ecs.Config, log *zap.Logger) (*ecs.World, components, error) {
	w := ecs.NewWorld(cfg, ecs.WithLogger(log))
	var c components
	var err error
	if c.position, err = ecs.RegisterComponent[Position](w, positionID, "position"); err != nil {
		return nil, c, err
	}
	if c.velocity, err = ecs.RegisterComponent[Velocity](w, velocityID, "velocity"); err != nil {
		return nil, c, err
	}
	if c.health, err = ecs.RegisterComponent[Health](w, healthID, "health"); err != nil {
		return nil, c, err
	}
	if err := ecs.RegisterRelation(w, huntsID, "hunts", false); err != nil {
		return nil, c, err
	}
	return w, c, nil
}

func spawn(w *ecs.World, c components, rng *rand.Rand, n int) error {
	player, err := w.CreateEntityWith(map[ecs.ComponentID]any{
		positionID: Position{},
		healthID:   Health{Current: 1000, Max: 1000},
	})
	if err != nil {
		return err
	}
	if err := w.Tag("player", player); err != nil {
		return err
	}

	spawned := make([]ecs.EntityID, 0, n)
	for i := 0; i < n; i++ {
		hp := 20 + rng.Intn(40)
		e, err := w.CreateEntityWith(map[ecs.ComponentID]any{
			positionID: Position{X: rng.Float64()*200 - 100, Y: rng.Float64()*200 - 100},
			velocityID: Velocity{},
			healthID:   Health{Current: hp, Max: hp},
		})
		if err != nil {
			return err
		}
		if err := w.AddToGroup("monsters", e); err != nil {
			return err
		}
		spawned = append(spawned, e)
	}
	// Every third monster hunts the player and one rival.
	for i := 0; i < len(spawned); i += 3 {
		if err := w.Relate(spawned[i], huntsID, player); err != nil {
			return err
		}
		if rival := spawned[(i+1)%len(spawned)]; rival != spawned[i] {
			if err := w.Relate(spawned[i], huntsID, rival); err != nil {
				return err
			}
		}
	}
	return nil
}

func addSystems(w *ecs.World, c components) error {
	hunting := ecs.AllOf(positionID, velocityID, huntsID)
	moving := ecs.AllOf(positionID, velocityID)
	living := ecs.AllOf(healthID)

	systems := []ecs.System{
		ecs.NewSystem(ecs.SystemConfig{Name: "reaper", Aspect: living, After: []string{"decay"}}, func(w *ecs.World, _ time.Duration) error {
			for e := range w.Entities(living) {
				if hp, _ := c.health.Value(w, e); hp.Current <= 0 {
					if err := w.DeleteEntity(e); err != nil {
						return err
					}
				}
			}
			return nil
		}),
		ecs.NewSystem(ecs.SystemConfig{Name: "decay", Aspect: living.ButNot(huntsID), After: []string{"movement"}}, func(w *ecs.World, _ time.Duration) error {
			ecs.Each(w, living.ButNot(huntsID), func(_ ecs.EntityID, a ecs.Archetype, row int) {
				c.health.Column(a)[row].Current--
			})
			return nil
		}),
		ecs.NewSystem(ecs.SystemConfig{Name: "hunt", Aspect: hunting, Before: []string{"movement"}}, func(w *ecs.World, _ time.Duration) error {
			cursor := w.Cursor(hunting)
			for cursor.Next() {
				target, ok := w.Target(cursor.Entity(), huntsID)
				if !ok {
					continue
				}
				goal, ok := c.position.Value(w, target)
				if !ok {
					continue
				}
				pos := c.position.FromCursor(cursor)
				vel := c.velocity.FromCursor(cursor)
				dx, dy := goal.X-pos.X, goal.Y-pos.Y
				if dist := math.Hypot(dx, dy); dist > 0 {
					vel.X, vel.Y = dx/dist, dy/dist
				}
			}
			return nil
		}),
		ecs.NewSystem(ecs.SystemConfig{Name: "movement", Aspect: moving}, func(w *ecs.World, dt time.Duration) error {
			scale := dt.Seconds() * 30
			ecs.Each(w, moving, func(_ ecs.EntityID, a ecs.Archetype, row int) {
				pos := &c.position.Column(a)[row]
				vel := c.velocity.Column(a)[row]
				pos.X += vel.X * scale
				pos.Y += vel.Y * scale
			})
			return nil
		}),
	}
	for _, s := range systems {
		if err := w.AddSystem(s); err != nil {
			return err
		}
	}
	return nil
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
