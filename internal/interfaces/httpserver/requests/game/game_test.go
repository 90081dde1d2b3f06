package gamerequests

import (
	"encoding/json"
	"testing"
)

func TestPlayerNumberDecoding(t *testing.T) {
	cases := map[string]int{
		`{"player_number": 2}`:        2,
		`{"player_number": "3"}`:      3,
		`{"player_number": "system"}`: 0,
		`{"player_number": null}`:     0,
		`{}`:                          0,
		`{"player_number": -4}`:       0,
	}
	for raw, want := range cases {
		var req PlayerRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if int(req.PlayerNumber) != want {
			t.Errorf("%s decoded to %d, want %d", raw, req.PlayerNumber, want)
		}
	}
}

func TestPlayerNumberOr(t *testing.T) {
	if PlayerNumber(0).Or(2) != 2 || PlayerNumber(5).Or(2) != 5 {
		t.Fatal("Or did not apply the fallback correctly")
	}
}

func TestStreamRequestNumber(t *testing.T) {
	if (StreamRequest{PlayerNumber: "2"}).Number() != 2 {
		t.Fatal("query player number ignored")
	}
	if (StreamRequest{Player: 4, PlayerNumber: "2"}).Number() != 4 {
		t.Fatal("body player number should win")
	}
	if (StreamRequest{}).Number() != 1 {
		t.Fatal("default player is 1")
	}
}
