// Command contestd runs the in-process contest fixture as a standalone
// server, seeded with a small scoreboard, so balloonpad can be tried without
// a real contest system. A ticker pushes a synthetic solve now and then to
// exercise the live feed.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/contestkit/balloonpad/internal/attend"
	"github.com/contestkit/balloonpad/internal/balloon"
	"github.com/contestkit/balloonpad/internal/contesttest"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	addr := os.Getenv("CONTESTD_ADDR")
	if addr == "" {
		addr = ":8888"
	}

	server := contesttest.New()
	server.Seed(
		balloon.Record{ContestID: 1, TeamID: 5, ProblemID: "A", Solver: "Wrong Answer", Problem: "Problem A"},
		balloon.Record{ContestID: 1, TeamID: 7, ProblemID: "C", Solver: "Segfault Inc", Problem: "Problem C"},
	)
	server.AddMember(attend.Member{
		ID:             "20260001",
		DisplayName:    "Alice",
		ClassLabel:     "CS-1",
		CollegeLabel:   "Computing",
		EnrollmentYear: 2026,
		CitizenSuffix:  "654321",
	})

	go pushSolves(server)

	r := chi.NewRouter()
	r.Mount("/contest", server)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	log.Info("contestd listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error("contestd exited", zap.Error(err))
		os.Exit(1)
	}
}

func pushSolves(server *contesttest.Server) {
	problems := []string{"A", "B", "C", "D"}
	team := int64(10)
	for range time.Tick(15 * time.Second) {
		p := problems[int(team)%len(problems)]
		server.Push(balloon.Record{
			ContestID: 1,
			TeamID:    team,
			ProblemID: p,
			Solver:    fmt.Sprintf("team-%d", team),
			Problem:   "Problem " + p,
		})
		team++
	}
}
