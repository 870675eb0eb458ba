package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"extsort/internal/classifier"
	"extsort/internal/journal"
	"extsort/internal/organizer"
	"extsort/internal/output"
	"extsort/internal/scanner"
)

// buildTree creates files under root. Keys are slash-separated relative
// paths; a trailing slash creates an empty directory.
func buildTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(path, 0755); err != nil {
				t.Fatalf("Failed to create %s: %v", rel, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create parent of %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", rel, err)
		}
	}
}

// snapshot returns every entry under root keyed by slash path. Directories
// map to "/" and files to their content.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	snap := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			snap[filepath.ToSlash(rel)] = "/"
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		snap[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	return snap
}

func newTestOrchestrator(j *journal.Writer) (*Orchestrator, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	out := output.New(output.Config{Writer: buf, ErrWriter: buf})
	return New(out, nil, j), buf
}

func movingLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Moving ") {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}

func TestRunSortsByExtension(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"batch_01/a.JPG":  "jpeg",
		"batch_01/readme": "text",
	})

	o, buf := newTestOrchestrator(nil)
	summary, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]string{
		"batch_01":     "/",
		"jpg":          "/",
		"jpg/a.JPG":    "jpeg",
		"NOEXT":        "/",
		"NOEXT/readme": "text",
	}
	if got := snapshot(t, root); !reflect.DeepEqual(got, want) {
		t.Errorf("tree after run = %v, want %v", got, want)
	}

	if summary.TotalFiles != 2 || summary.Moved != 2 || summary.DirsCreated != 2 || summary.Bytes != 8 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.ByKey["jpg"] != 1 || summary.ByKey[classifier.Sentinel] != 1 {
		t.Errorf("ByKey = %v", summary.ByKey)
	}
	if len(summary.Overlaps) != 0 {
		t.Errorf("unexpected overlaps: %v", summary.Overlaps)
	}

	out := buf.String()
	for _, want := range []string{
		"Will move every file in " + root + "/batch_*/ to " + root + "/<extname>/\n",
		"Moving " + filepath.Join(root, "batch_01", "a.JPG") + " => " + filepath.Join(root, "jpg", "a.JPG") + "\n",
		"Moving " + filepath.Join(root, "batch_01", "readme") + " => " + filepath.Join(root, "NOEXT", "readme") + "\n",
		"Done.\n",
		"Moved 2 files (8 B) into 2 directories\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, DryRunBanner) {
		t.Error("banner printed for a real run")
	}
}

func TestRunLeavesNonMatchingDirectories(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"other/data.txt": "data",
		"batch_01/a.pdf": "pdf",
		"loose.txt":      "root file",
	})

	o, _ := newTestOrchestrator(nil)
	if _, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := snapshot(t, root)
	if snap["other/data.txt"] != "data" || snap["loose.txt"] != "root file" {
		t.Errorf("non-matching entries changed: %v", snap)
	}
	if _, ok := snap["txt"]; ok {
		t.Error("root/txt should not exist")
	}
	if snap["pdf/a.pdf"] != "pdf" {
		t.Errorf("a.pdf not sorted: %v", snap)
	}
}

func TestRunNeverMovesNestedDirectories(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"batch_01/nested/deep.txt": "deep",
		"batch_01/top.txt":         "top",
	})

	o, _ := newTestOrchestrator(nil)
	if _, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := snapshot(t, root)
	if snap["batch_01/nested/deep.txt"] != "deep" {
		t.Errorf("nested file moved: %v", snap)
	}
	if snap["txt/top.txt"] != "top" {
		t.Errorf("top-level file not moved: %v", snap)
	}
	if _, ok := snap["txt/deep.txt"]; ok {
		t.Error("nested file should never be moved")
	}
}

func TestRunTwiceSucceeds(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"batch_01/a.txt": "a"})

	o, _ := newTestOrchestrator(nil)
	if _, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_"}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	buildTree(t, root, map[string]string{"batch_02/b.txt": "b"})
	summary, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_"})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if summary.Moved != 1 || summary.DirsCreated != 0 {
		t.Errorf("second run: moved=%d dirsCreated=%d, want 1 and 0", summary.Moved, summary.DirsCreated)
	}

	summary, err = o.Run(context.Background(), Options{Root: root, Prefix: "batch_"})
	if err != nil {
		t.Fatalf("third Run failed: %v", err)
	}
	if summary.TotalFiles != 0 {
		t.Errorf("third run found %d files, want 0", summary.TotalFiles)
	}
}

func TestRunMissingRoot(t *testing.T) {
	o, _ := newTestOrchestrator(nil)
	_, err := o.Run(context.Background(), Options{Root: filepath.Join(t.TempDir(), "absent")})

	var scanErr *scanner.ScanError
	if !errors.As(err, &scanErr) || scanErr.Type != scanner.DirectoryNotFound {
		t.Fatalf("expected DirectoryNotFound, got %v", err)
	}
}

func TestRunCollisionFollowsPlatformRename(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"A/x.txt": "from A",
		"B/x.txt": "from B",
	})

	o, _ := newTestOrchestrator(nil)
	summary, err := o.Run(context.Background(), Options{Root: root})

	if runtime.GOOS == "windows" {
		if err == nil {
			t.Fatal("expected the second rename to fail on windows")
		}
		if summary.Moved != 1 {
			t.Errorf("Moved = %d, want 1 before the failure", summary.Moved)
		}
		return
	}

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	content, readErr := os.ReadFile(filepath.Join(root, "txt", "x.txt"))
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(content) != "from A" && string(content) != "from B" {
		t.Errorf("unexpected content %q", content)
	}
	if summary.Moved != 2 {
		t.Errorf("Moved = %d, want 2", summary.Moved)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "txt"))
	if len(entries) != 1 {
		t.Errorf("expected a single surviving x.txt, got %d entries", len(entries))
	}
}

func TestRunFlagsOverlap(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"jpg/old.jpg":    "old",
		"camera/new.jpg": "new",
		"camera/b.jpg":   "b",
	})

	o, _ := newTestOrchestrator(nil)
	summary, err := o.Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if want := []string{filepath.Join(root, "jpg")}; !reflect.DeepEqual(summary.Overlaps, want) {
		t.Errorf("Overlaps = %v, want %v", summary.Overlaps, want)
	}
	snap := snapshot(t, root)
	for _, name := range []string{"jpg/old.jpg", "jpg/new.jpg", "jpg/b.jpg"} {
		if _, ok := snap[name]; !ok {
			t.Errorf("%s missing after run: %v", name, snap)
		}
	}
}

func TestRunDryRunChangesNothing(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"batch_01/a.JPG":    "jpeg",
		"batch_01/readme":   "text",
		"batch_02/c.tar.gz": "gz",
	})
	before := snapshot(t, root)

	o, buf := newTestOrchestrator(nil)
	summary, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_", DryRun: true})
	if err != nil {
		t.Fatalf("dry Run failed: %v", err)
	}

	if after := snapshot(t, root); !reflect.DeepEqual(after, before) {
		t.Errorf("dry run changed the tree:\nbefore %v\nafter  %v", before, after)
	}
	if summary.Moved != 0 || summary.DirsCreated != 0 || summary.TotalFiles != 3 {
		t.Errorf("unexpected dry-run summary: %+v", summary)
	}

	out := buf.String()
	if !strings.HasPrefix(out, DryRunBanner+"\n"+strings.Repeat("-", len(DryRunBanner))+"\n") {
		t.Errorf("dry run output should start with the banner:\n%s", out)
	}
	if !strings.Contains(out, "Would move 3 files (10 B) into 3 directories\n") {
		t.Errorf("dry run summary line missing:\n%s", out)
	}
}

func TestDryRunBannerHighlightedOnTerminal(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"batch_01/a.txt": "a"})

	buf := &bytes.Buffer{}
	o := New(output.New(output.Config{Writer: buf, ErrWriter: buf, IsTTY: true}), nil, nil)
	if _, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_", DryRun: true}); err != nil {
		t.Fatalf("dry Run failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "\033[33m"+DryRunBanner+"\033[0m\n") {
		t.Errorf("banner should be highlighted on a terminal:\n%q", buf.String())
	}
}

func TestDryRunReportsSameMovesAsRealRun(t *testing.T) {
	files := map[string]string{
		"recup_dir.1/a.JPG":   "1",
		"recup_dir.1/notes.":  "2",
		"recup_dir.2/.bashrc": "3",
		"recup_dir.2/b.Pdf":   "4",
		"elsewhere/c.txt":     "5",
	}
	dryRoot := t.TempDir()
	realRoot := t.TempDir()
	buildTree(t, dryRoot, files)
	buildTree(t, realRoot, files)

	dry, dryBuf := newTestOrchestrator(nil)
	if _, err := dry.Run(context.Background(), Options{Root: dryRoot, Prefix: "recup_dir.", DryRun: true}); err != nil {
		t.Fatal(err)
	}
	live, liveBuf := newTestOrchestrator(nil)
	if _, err := live.Run(context.Background(), Options{Root: realRoot, Prefix: "recup_dir."}); err != nil {
		t.Fatal(err)
	}

	dryLines := movingLines(strings.ReplaceAll(dryBuf.String(), dryRoot, "ROOT"))
	liveLines := movingLines(strings.ReplaceAll(liveBuf.String(), realRoot, "ROOT"))
	if !reflect.DeepEqual(dryLines, liveLines) {
		t.Errorf("dry run reported\n%v\nreal run reported\n%v", dryLines, liveLines)
	}
	if len(dryLines) != 4 {
		t.Errorf("expected 4 moves, got %d", len(dryLines))
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"batch_01/a.txt": "a"})
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, buf := newTestOrchestrator(j)
	summary, err := o.Run(ctx, Options{Root: root, Prefix: "batch_"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Moved != 0 {
		t.Errorf("Moved = %d after cancellation", summary.Moved)
	}
	if strings.Contains(buf.String(), "Done.") {
		t.Error("Done. printed for an interrupted run")
	}

	latest, err := journal.NewReader(journalPath).GetLatestRun()
	if err != nil || latest == nil {
		t.Fatalf("GetLatestRun = (%v, %v)", latest, err)
	}
	if latest.Status != journal.RunStatusInterrupted {
		t.Errorf("Status = %s, want INTERRUPTED", latest.Status)
	}
}

func TestRunJournal(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"batch_01/a.txt": "aa",
		"batch_01/b.txt": "bbb",
	})
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	o, _ := newTestOrchestrator(j)
	if _, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_", DryRun: true}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Fatalf("dry run wrote %d bytes to the journal", info.Size())
	}

	summary, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_"})
	if err != nil {
		t.Fatal(err)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run ID for a journaled run")
	}

	reader := journal.NewReader(journalPath)
	run, err := reader.GetRunInfo(summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	want := journal.RunSummary{TotalFiles: 2, Moved: 2, DirsCreated: 1, Bytes: 5}
	if run.Status != journal.RunStatusCompleted || run.Summary != want {
		t.Errorf("run info = %+v, want COMPLETED with %+v", run, want)
	}
	if run.Root != root || run.Prefix != "batch_" || run.Mode != "sort" {
		t.Errorf("unexpected run metadata: %+v", run)
	}

	events, err := reader.GetRun(summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	counts := make(map[journal.EventType]int)
	for _, e := range events {
		counts[e.EventType]++
	}
	if counts[journal.EventMove] != 2 || counts[journal.EventMkdir] != 1 {
		t.Errorf("event counts = %v", counts)
	}
}

func TestRunFailureIsJournaled(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{
		"batch_01/a.txt": "a",
		"txt":            "a file where a directory belongs",
	})
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	o, _ := newTestOrchestrator(j)
	summary, err := o.Run(context.Background(), Options{Root: root, Prefix: "batch_"})

	var moveErr *organizer.MoveError
	if !errors.As(err, &moveErr) || moveErr.Type != organizer.MkdirFailed {
		t.Fatalf("expected MkdirFailed, got %v", err)
	}
	if summary.Moved != 0 {
		t.Errorf("Moved = %d, want 0", summary.Moved)
	}

	events, err := journal.NewReader(journalPath).GetRun(summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	var errEvent *journal.Event
	for i := range events {
		if events[i].EventType == journal.EventError {
			errEvent = &events[i]
		}
	}
	if errEvent == nil || errEvent.ErrorDetails.ErrorType != string(organizer.MkdirFailed) || errEvent.ErrorDetails.Operation != "mkdir" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
	if last := events[len(events)-1]; last.EventType != journal.EventRunEnd || last.Metadata["status"] != string(journal.RunStatusFailed) {
		t.Errorf("last event = %+v, want FAILED RUN_END", last)
	}
}

func TestSortFile(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, map[string]string{"inbox/report.DOCX": "doc"})
	file := scanner.FileEntry{Name: "report.DOCX", FullPath: filepath.Join(root, "inbox", "report.DOCX"), Size: 3}

	o, buf := newTestOrchestrator(nil)
	outcome, err := o.SortFile(root, file, false)
	if err != nil {
		t.Fatalf("SortFile failed: %v", err)
	}
	if !outcome.Moved || !outcome.DirCreated || outcome.Key != "docx" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if _, err := os.Stat(filepath.Join(root, "docx", "report.DOCX")); err != nil {
		t.Errorf("file not moved: %v", err)
	}
	if !strings.Contains(buf.String(), "Moving ") {
		t.Error("SortFile should report the move")
	}
}

// genSourceTree generates file names for two source directories. Names are
// unique within each directory.
func genSourceTree() gopter.Gen {
	names := gen.OneConstOf("a.txt", "B.JPG", "readme", ".bashrc", "x.tar.gz", "odd.", "Photo.Png", "..x", "c.TXT")
	return gopter.CombineGens(
		gen.SliceOfN(5, names),
		gen.SliceOfN(5, names),
	).Map(func(vals []interface{}) map[string]string {
		files := make(map[string]string)
		for i, dir := range []string{"recup_dir.1", "recup_dir.2"} {
			for _, name := range vals[i].([]string) {
				files[dir+"/"+name] = dir + name
			}
		}
		return files
	})
}

func TestDryRunProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("dry run leaves the tree unchanged and plans key-based destinations", prop.ForAll(
		func(files map[string]string) bool {
			root := t.TempDir()
			buildTree(t, root, files)
			before := snapshot(t, root)

			o, _ := newTestOrchestrator(nil)
			summary, err := o.Run(context.Background(), Options{Root: root, Prefix: "recup_dir.", DryRun: true})
			if err != nil {
				t.Logf("dry Run failed: %v", err)
				return false
			}
			if !reflect.DeepEqual(snapshot(t, root), before) {
				t.Logf("tree changed by dry run")
				return false
			}
			if summary.TotalFiles != len(files) {
				t.Logf("planned %d moves for %d files", summary.TotalFiles, len(files))
				return false
			}
			for _, m := range summary.Moves {
				name := filepath.Base(m.Source)
				if m.Key != classifier.Key(name) || m.Destination != filepath.Join(root, m.Key, name) {
					t.Logf("bad planned move %+v", m)
					return false
				}
			}
			return true
		},
		genSourceTree(),
	))

	properties.Property("real run places every file at root/key/name", prop.ForAll(
		func(files map[string]string) bool {
			// Keep one source directory so names cannot collide.
			single := make(map[string]string)
			for rel, content := range files {
				if strings.HasPrefix(rel, "recup_dir.1/") {
					single[rel] = content
				}
			}

			root := t.TempDir()
			buildTree(t, root, single)

			o, _ := newTestOrchestrator(nil)
			if _, err := o.Run(context.Background(), Options{Root: root, Prefix: "recup_dir."}); err != nil {
				t.Logf("Run failed: %v", err)
				return false
			}

			snap := snapshot(t, root)
			for rel, content := range single {
				name := strings.TrimPrefix(rel, "recup_dir.1/")
				if _, ok := snap[rel]; ok {
					t.Logf("%s still in source directory", rel)
					return false
				}
				if got := snap[classifier.Key(name)+"/"+name]; got != content {
					t.Logf("%s: destination content %q, want %q", name, got, content)
					return false
				}
			}
			return true
		},
		genSourceTree(),
	))

	properties.TestingRun(t)
}
