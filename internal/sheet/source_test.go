package sheet

import "testing"

func TestColumnLetter(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		-1: "A",
		0:  "A",
		4:  "E",
		25: "Z",
		26: "AA",
		51: "AZ",
		52: "BA",
	}
	for index, want := range cases {
		if got := columnLetter(index); got != want {
			t.Fatalf("columnLetter(%d) = %q, want %q", index, got, want)
		}
	}
}
