package cassowary_test

import (
	"fmt"

	"github.com/matzehuels/limn/pkg/cassowary"
)

func Example() {
	left := cassowary.NewVariable("left")
	width := cassowary.NewVariable("width")
	right := cassowary.NewVariable("right")

	s := cassowary.NewSolver()
	_ = s.AddConstraint(cassowary.Equals(cassowary.Var(right), cassowary.Var(left).Plus(cassowary.Var(width)), cassowary.Required))
	_ = s.AddConstraint(cassowary.Equals(cassowary.Var(width), cassowary.Constant(100), cassowary.Required))
	_ = s.AddConstraint(cassowary.Equals(cassowary.Var(left), cassowary.Constant(20), cassowary.Strong))

	for _, c := range s.FetchChanges() {
		fmt.Printf("%s = %g\n", c.Variable, c.Value)
	}
	// Output:
	// left = 20
	// width = 100
	// right = 120
}

func ExampleSolver_SuggestValue() {
	x := cassowary.NewVariable("x")

	s := cassowary.NewSolver()
	_ = s.AddConstraint(cassowary.LessOrEqual(cassowary.Var(x), cassowary.Constant(80), cassowary.Required))
	_ = s.AddEditVariable(x, cassowary.Strong)

	for _, target := range []float64{50, 120} {
		_ = s.SuggestValue(x, target)
		fmt.Printf("suggest %g -> x = %g\n", target, s.Value(x))
	}
	// Output:
	// suggest 50 -> x = 50
	// suggest 120 -> x = 80
}

func ExampleConstraint_String() {
	x := cassowary.NewVariable("x")
	y := cassowary.NewVariable("y")
	c := cassowary.GreaterOrEqual(cassowary.Var(x), cassowary.Var(y).Plus(cassowary.Constant(10)), cassowary.Medium)
	fmt.Println(c)
	// Output:
	// x - y - 10 >= 0 | medium
}
