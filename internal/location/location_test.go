package location

import "testing"

func TestParseValid(t *testing.T) {
	p, ok := Parse(" 12.9716 , 77.5946 ")
	if !ok {
		t.Fatal("expected valid location")
	}
	if p.Lat != 12.9716 || p.Lon != 77.5946 {
		t.Fatalf("unexpected point: %+v", p)
	}
}

func TestParseInvalidDropsBothCoordinates(t *testing.T) {
	inputs := []string{
		"",
		"12.97",
		"12.97,",
		",77.59",
		"abc,77.59",
		"12.97,77.59,3",
		"91,10",
		"10,181",
		"NaN,10",
		"Inf,10",
	}
	for _, in := range inputs {
		if _, ok := Parse(in); ok {
			t.Fatalf("expected Parse(%q) to fail", in)
		}
		lat, lon := Coordinates(in)
		if lat != nil || lon != nil {
			t.Fatalf("Coordinates(%q) returned a partial or full pair: %v %v", in, lat, lon)
		}
	}
}

func TestCoordinatesPair(t *testing.T) {
	lat, lon := Coordinates("-33.8688,151.2093")
	if lat == nil || lon == nil {
		t.Fatal("expected both coordinates")
	}
	if *lat != -33.8688 || *lon != 151.2093 {
		t.Fatalf("unexpected coordinates: %v,%v", *lat, *lon)
	}
}
