package repokit_test

import (
	"context"
	"fmt"

	"github.com/rise-and-shine/repokit"
	"github.com/rise-and-shine/repokit/memstore"
	"github.com/rise-and-shine/repokit/patch"
	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
)

type member struct {
	ID       int64  `record:"id,pk"`
	Username string `record:"username"`
	Email    string `record:"email"`
}

func Example_usage() {
	ctx := context.Background()

	repo := repokit.MustNew[member](memstore.New[member]())
	b := repo.Predicates()

	for _, m := range []member{
		{Username: "johndoe", Email: "user@corp.example"},
		{Username: "alice", Email: "alice@corp.example"},
	} {
		if err := repo.Insert(ctx, &m); err != nil {
			panic(err)
		}
	}

	found, err := repo.FindOne(ctx, predicate.Must(b.Eq("username", "johndoe")))
	if err != nil {
		panic(err)
	}
	fmt.Printf("found: %s <%s>\n", found.Username, found.Email)

	p := patch.New(record.MustInfer[member]())
	if err := p.Set("email", "john.doe@corp.example"); err != nil {
		panic(err)
	}

	changed, err := repo.Update(ctx, found.ID, p)
	if err != nil {
		panic(err)
	}
	fmt.Println("changed:", changed)

	// Re-applying the same patch finds nothing left to change.
	changed, err = repo.Update(ctx, found.ID, p)
	if err != nil {
		panic(err)
	}
	fmt.Println("changed again:", changed)

	// Output:
	// found: johndoe <user@corp.example>
	// changed: true
	// changed again: false
}
