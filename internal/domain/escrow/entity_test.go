package escrow

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusCreated, StatusFunded, true},
		{StatusCreated, StatusReleased, false},
		{StatusCreated, StatusRefunded, false},
		{StatusCreated, StatusDisputed, false},
		{StatusFunded, StatusReleased, true},
		{StatusFunded, StatusDisputed, true},
		{StatusFunded, StatusRefunded, false},
		{StatusFunded, StatusFunded, false},
		{StatusDisputed, StatusReleased, true},
		{StatusDisputed, StatusRefunded, true},
		{StatusDisputed, StatusFunded, false},
		{StatusReleased, StatusRefunded, false},
		{StatusReleased, StatusDisputed, false},
		{StatusRefunded, StatusReleased, false},
	}
	for _, tc := range cases {
		e := &Escrow{Status: tc.from}
		if got := e.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
