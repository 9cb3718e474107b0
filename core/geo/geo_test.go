package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/taskhive/dispatch/core/model"
)

func TestDistanceKnownPair(t *testing.T) {
	// Bangalore city centre to Whitefield, roughly 15.5 km.
	a := model.Location{Lat: 12.9716, Lng: 77.5946}
	b := model.Location{Lat: 12.9698, Lng: 77.7500}
	d, err := Distance(a, b)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d < 15 || d > 18 {
		t.Fatalf("expected ~16.9 km, got %.2f", d)
	}
}

func TestDistanceZero(t *testing.T) {
	p := model.Location{Lat: 48.8566, Lng: 2.3522}
	d, err := Distance(p, p)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestDistanceAntipodal(t *testing.T) {
	a := model.Location{Lat: 0, Lng: 0}
	b := model.Location{Lat: 0, Lng: 180}
	d, err := Distance(a, b)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	// Half the Earth circumference at the mean radius.
	want := math.Pi * 6371.0
	if math.Abs(d-want) > 1 {
		t.Fatalf("expected %.1f, got %.1f", want, d)
	}
}

func TestDistanceInvalid(t *testing.T) {
	good := model.Location{Lat: 10, Lng: 10}
	cases := []model.Location{
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.NaN()},
		{Lat: 91, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 181},
		{Lat: 0, Lng: -181},
	}
	for _, bad := range cases {
		if _, err := Distance(good, bad); !errors.Is(err, ErrInvalidLocation) {
			t.Fatalf("expected ErrInvalidLocation for %+v, got %v", bad, err)
		}
		if _, err := Distance(bad, good); !errors.Is(err, ErrInvalidLocation) {
			t.Fatalf("expected ErrInvalidLocation for %+v, got %v", bad, err)
		}
	}
}
