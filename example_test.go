package ecs_test

import (
	"bytes"
	"fmt"
	"time"

	ecs "github.com/R-N-J/web-test-1-sub000"
)

type Position struct {
	X float64
	Y float64
}

type Velocity struct {
	X float64
	Y float64
}

type Name struct {
	Value string
}

// Example_basic shows entity creation, a batch edit and a cursor query.
func Example_basic() {
	w := ecs.NewWorld(ecs.DefaultConfig())
	position := ecs.MustRegisterComponent[Position](w, 0, "position")
	velocity := ecs.MustRegisterComponent[Velocity](w, 1, "velocity")
	name := ecs.MustRegisterComponent[Name](w, 2, "name")

	for i := 0; i < 3; i++ {
		e, _ := w.CreateEntity()
		position.Add(w, e, Position{})
		velocity.Add(w, e, Velocity{X: 1})
	}
	player, _ := w.CreateEntity()
	w.Edit(player).
		Add(position.ID(), Position{X: 10, Y: 20}).
		Add(velocity.ID(), Velocity{X: 1, Y: 2}).
		Add(name.ID(), Name{Value: "Player"}).
		Commit()

	moving := ecs.AllOf(position.ID(), velocity.ID())
	fmt.Printf("Found %d entities with position and velocity\n", w.Count(moving))

	cursor := w.Cursor(ecs.AllOf(name.ID()))
	for cursor.Next() {
		pos := position.FromCursor(cursor)
		vel := velocity.FromCursor(cursor)
		nme := name.FromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
		fmt.Printf("Updated %s to position (%.1f, %.1f)\n", nme.Value, pos.X, pos.Y)
	}

	// Output:
	// Found 4 entities with position and velocity
	// Updated Player to position (11.0, 22.0)
}

// Example_queries shows the aspect filters.
func Example_queries() {
	w := ecs.NewWorld(ecs.DefaultConfig())
	position := ecs.MustRegisterComponent[Position](w, 0, "position")
	velocity := ecs.MustRegisterComponent[Velocity](w, 1, "velocity")
	name := ecs.MustRegisterComponent[Name](w, 2, "name")

	spawn := func(n int, values map[ecs.ComponentID]any) {
		for i := 0; i < n; i++ {
			w.CreateEntityWith(values)
		}
	}
	spawn(3, map[ecs.ComponentID]any{position.ID(): Position{}})
	spawn(3, map[ecs.ComponentID]any{position.ID(): Position{}, velocity.ID(): Velocity{}})
	spawn(3, map[ecs.ComponentID]any{position.ID(): Position{}, name.ID(): Name{}})
	spawn(3, map[ecs.ComponentID]any{position.ID(): Position{}, velocity.ID(): Velocity{}, name.ID(): Name{}})

	query := ecs.Factory.NewQuery().And(position, velocity)
	fmt.Printf("AND query matched %d entities\n", w.Count(query.Aspect()))

	fmt.Printf("OR query matched %d entities\n", w.Count(ecs.OneOf(velocity.ID(), name.ID())))

	notQuery := ecs.Factory.NewQuery().And(position).Not(velocity)
	fmt.Printf("NOT query matched %d entities\n", w.Count(notQuery.Aspect()))

	// Output:
	// AND query matched 6 entities
	// OR query matched 9 entities
	// NOT query matched 6 entities
}

// Example_systems runs two ordered systems for a few ticks and saves the
// result.
func Example_systems() {
	w := ecs.NewWorld(ecs.DefaultConfig())
	position := ecs.MustRegisterComponent[Position](w, 0, "position")
	velocity := ecs.MustRegisterComponent[Velocity](w, 1, "velocity")

	e, _ := w.CreateEntityWith(map[ecs.ComponentID]any{
		position.ID(): Position{},
		velocity.ID(): Velocity{X: 2},
	})

	moving := ecs.AllOf(position.ID(), velocity.ID())
	w.AddSystem(ecs.NewSystem(ecs.SystemConfig{Name: "report", After: []string{"move"}}, func(w *ecs.World, _ time.Duration) error {
		pos, _ := position.Value(w, e)
		fmt.Printf("x=%.0f\n", pos.X)
		return nil
	}))
	w.AddSystem(ecs.NewSystem(ecs.SystemConfig{Name: "move", Aspect: moving}, func(w *ecs.World, _ time.Duration) error {
		ecs.Each(w, moving, func(_ ecs.EntityID, a ecs.Archetype, row int) {
			position.Column(a)[row].X += velocity.Column(a)[row].X
		})
		return nil
	}))
	fmt.Println(w.Scheduler().Order())

	for i := 0; i < 3; i++ {
		w.Update(time.Second / 60)
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err == nil {
		fmt.Println("saved")
	}

	// Output:
	// [move report]
	// x=2
	// x=4
	// x=6
	// saved
}
