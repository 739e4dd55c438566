package ecs

import "testing"

const (
	nPos    = 9000
	nPosVel = 1000
)

func setupBenchWorld(b *testing.B) (*World, testComponents) {
	w, c := newTestWorld(b)
	for i := 0; i < nPosVel; i++ {
		e := mustCreate(b, w)
		if err := w.Edit(e).Add(positionID, Position{}).Add(velocityID, Velocity{X: 1, Y: 1}).Commit(); err != nil {
			b.Fatal(err)
		}
	}
	for i := 0; i < nPos; i++ {
		mustAdd(b, w, mustCreate(b, w), positionID, Position{})
	}
	return w, c
}

func BenchmarkIterCursor(b *testing.B) {
	w, c := setupBenchWorld(b)
	cursor := w.Cursor(AllOf(positionID, velocityID))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for cursor.Next() {
			pos := c.position.FromCursor(cursor)
			vel := c.velocity.FromCursor(cursor)
			pos.X += vel.X
			pos.Y += vel.Y
		}
	}
}

func BenchmarkIterColumns(b *testing.B) {
	w, c := setupBenchWorld(b)
	aspect := AllOf(positionID, velocityID)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for _, arch := range w.Query(aspect) {
			pos := c.position.Column(arch)
			vel := c.velocity.Column(arch)
			for j := range pos {
				pos[j].X += vel[j].X
				pos[j].Y += vel[j].Y
			}
		}
	}
}

func BenchmarkAddRemove(b *testing.B) {
	w, _ := setupBenchWorld(b)
	e := mustCreate(b, w)
	mustAdd(b, w, e, positionID, Position{})
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := w.AddComponent(e, velocityID, Velocity{}); err != nil {
			b.Fatal(err)
		}
		if err := w.RemoveComponent(e, velocityID); err != nil {
			b.Fatal(err)
		}
	}
}
