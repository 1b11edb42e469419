package telnetsrv

import "testing"

func TestRegistryOverviewExcludesHiddenAndSortsAlphabetically(t *testing.T) {
	r := NewRegistry()
	r.Register(Command{Names: []string{"ZEBRA"}, Short: "z"})
	r.Register(Command{Names: []string{"APPLE"}, Short: "a"})
	r.Register(Command{Names: []string{"SECRET"}, Short: "s", Hidden: true})

	overview := r.overview()
	if len(overview) != 2 {
		t.Fatalf("overview has %d entries, want 2: %+v", len(overview), overview)
	}
	if overview[0].canonical() != "APPLE" || overview[1].canonical() != "ZEBRA" {
		t.Fatalf("overview order = [%s, %s], want [APPLE, ZEBRA]", overview[0].canonical(), overview[1].canonical())
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(Command{Names: []string{"ECHO"}, Short: "first"})
	r.Register(Command{Names: []string{"ECHO"}, Short: "second"})

	cmd, ok := r.lookup("echo")
	if !ok {
		t.Fatal("expected ECHO to be registered")
	}
	if cmd.Short != "second" {
		t.Fatalf("Short = %q, want %q", cmd.Short, "second")
	}
}

func TestRegistryAliasesShareCanonicalName(t *testing.T) {
	r := NewRegistry()
	r.Register(Command{Names: []string{"EXIT", "QUIT", "BYE"}, Short: "leave"})

	for _, alias := range []string{"EXIT", "QUIT", "BYE", "exit"} {
		cmd, ok := r.lookup(alias)
		if !ok {
			t.Fatalf("lookup(%q) failed", alias)
		}
		if cmd.canonical() != "EXIT" {
			t.Fatalf("lookup(%q).canonical() = %q, want %q", alias, cmd.canonical(), "EXIT")
		}
	}

	overview := r.overview()
	if len(overview) != 1 {
		t.Fatalf("overview has %d entries, want 1 (aliases must not duplicate)", len(overview))
	}
}

func TestRegistryUnknownName(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.lookup("NOPE"); ok {
		t.Fatal("expected lookup of unregistered name to fail")
	}
}
