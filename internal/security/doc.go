// Package security decides, for every incoming tool call, whether the
// calling credential may run the named tool and whether the arguments are
// safe to hand to a command interpreter. Decisions are pure: no side
// effects, no transport dependencies.
package security
