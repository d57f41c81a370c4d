// ABOUTME: Tests for the install-skill command
// ABOUTME: Verifies skill installation, directory creation, and file content

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withSkipConfirm(t *testing.T) {
	t.Helper()
	skillSkipConfirm = true
	t.Cleanup(func() { skillSkipConfirm = false })
}

func TestSkillInstall_Success(t *testing.T) {
	withSkipConfirm(t)
	home := t.TempDir()

	if err := installSkill(home); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	path := filepath.Join(home, ".claude", "skills", "rotograma", "SKILL.md")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("skill file was not created")
	}
}

func TestSkillInstall_FileContent(t *testing.T) {
	withSkipConfirm(t)
	home := t.TempDir()

	if err := installSkill(home); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	installed, err := os.ReadFile(skillPath(home))
	if err != nil {
		t.Fatalf("failed to read installed skill: %v", err)
	}
	embedded, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		t.Fatalf("failed to read embedded skill: %v", err)
	}
	if string(installed) != string(embedded) {
		t.Error("installed skill does not match embedded content")
	}
	if !strings.Contains(string(installed), "name: rotograma") {
		t.Error("skill frontmatter missing name")
	}
}

func TestSkillInstall_Overwrite(t *testing.T) {
	withSkipConfirm(t)
	home := t.TempDir()

	path := skillPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := installSkill(home); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) == "old" {
		t.Error("existing skill was not overwritten")
	}
}

func TestSkillInstall_EmbeddedMentionsMCPTools(t *testing.T) {
	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		t.Fatalf("embedded skill missing: %v", err)
	}
	for _, tool := range []string{"list_trips", "get_trip", "export_track", "remove_trip"} {
		if !strings.Contains(string(content), tool) {
			t.Errorf("skill does not mention %s", tool)
		}
	}
}

func TestInstallSkillCmd_Metadata(t *testing.T) {
	if installSkillCmd.Use != "install-skill" {
		t.Errorf("unexpected Use: %q", installSkillCmd.Use)
	}
	flag := installSkillCmd.Flags().Lookup("yes")
	if flag == nil {
		t.Fatal("yes flag not found")
	}
	if flag.Shorthand != "y" {
		t.Errorf("expected shorthand 'y', got %q", flag.Shorthand)
	}
}
