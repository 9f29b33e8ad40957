package objemit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"unlink/labels"
	"unlink/manual"
	"unlink/modules"
	"unlink/refs"
	"unlink/rewrite"
	"unlink/romimage"
	"unlink/vectors"
)

// moduleHeader is the descriptive comment block rendered ahead of each
// module's contents (spec.md §4.10), in the teacher's banner-comment
// template style.
var moduleHeader = `\ ----------------------------------------------------------------------------
\ module {{ .Name }}  [0x{{ printf "%X" .Start }}, 0x{{ printf "%X" .Stop }})
\ start: {{ range .StartReasons }}{{ . }}; {{ end }}
\ stop:  {{ range .StopReasons }}{{ . }}; {{ end }}
{{ range .Resolved }}\ ref {{ .Label }} width={{ .Width }} site=0x{{ printf "%X" .SiteOffset }}{{ if .IsBranch }} (branch, reseated){{ end }}
{{ end -}}
{{ range .Unresolved }}\ unresolved ref at 0x{{ printf "%X" .SiteOffset }} -> 0x{{ printf "%X" .TargetOffset }}
{{ end -}}
`

var moduleHeaderTemplate = template.Must(template.New("module").Parse(moduleHeader))

type headerData struct {
	Name                      string
	Start, Stop               int
	StartReasons, StopReasons []string
	Resolved                  []rewrite.ResolvedRef
	Unresolved                []rewrite.UnresolvedRef
}

// Driver drives a Sink through an entire run's file/module/reference data,
// per spec.md §4.10.
type Driver struct {
	Sink       Sink
	ROM        *romimage.ROM
	L          labels.L
	Bound      vectors.BoundIndex
	RewriteCtx rewrite.Context
	OutDir     string // directory object files are written relative to
}

// Emit drives fileRanges/moduleRanges/sites through d.Sink, writing
// WRITEOUT-flagged files to disk (spec.md §4.10).
func (d *Driver) Emit(fileRanges []manual.FileRange, moduleRanges []modules.Range, refEnabled []manual.ToggleRange, sites []refs.Site) error {
	var filtered []refs.Site
	for _, s := range sites {
		if manual.AnyEnabled(refEnabled, s.SiteOffset) {
			filtered = append(filtered, s)
		}
	}

	sortedModules := append([]modules.Range(nil), moduleRanges...)
	sort.Slice(sortedModules, func(i, j int) bool { return sortedModules[i].Start < sortedModules[j].Start })

	for _, fr := range fileRanges {
		var buf bytes.Buffer
		var allNames []string

		var modsInFile []modules.Range
		for _, mr := range sortedModules {
			if mr.Start >= fr.Start && mr.Start < fr.Stop {
				modsInFile = append(modsInFile, mr)
			}
		}

		type modNames struct {
			mr              modules.Range
			name            string
			chunkOrder      []labels.Entry
			nameVectorBound bool
		}
		named := make([]modNames, len(modsInFile))
		for i, mr := range modsInFile {
			name, chunkOrder, _, nameVectorBound := labels.SelectModuleEntries(mr.Start, mr.Stop, d.L, d.Bound)
			named[i] = modNames{mr: mr, name: name, chunkOrder: chunkOrder, nameVectorBound: nameVectorBound}
			allNames = append(allNames, name)
			for _, e := range chunkOrder {
				allNames = append(allNames, e.Label)
			}
		}

		d.Sink.PutFirst()
		d.Sink.PutDict(allNames)

		for _, n := range named {
			mr, name, chunkOrder, nameVectorBound := n.mr, n.name, n.chunkOrder, n.nameVectorBound

			modBuf, err := d.ROM.Slice(mr.Start, mr.Stop-mr.Start)
			if err != nil {
				return fmt.Errorf("objemit: module [0x%X,0x%X): %w", mr.Start, mr.Stop, err)
			}
			local := append([]byte(nil), modBuf...)

			resolved, unresolved := rewrite.Apply(local, mr.Start, mr.Stop, filtered, d.RewriteCtx)

			var hdr bytes.Buffer
			moduleHeaderTemplate.Execute(&hdr, headerData{
				Name: name, Start: mr.Start, Stop: mr.Stop,
				StartReasons: mr.StartReasons, StopReasons: mr.StopReasons,
				Resolved: resolved, Unresolved: unresolved,
			})

			flags := FlagForced
			if fr.HasFlag("NOFORCE") {
				flags &^= FlagForced
			}
			if nameVectorBound {
				flags |= FlagExternal
			}
			for _, e := range chunkOrder {
				if e.GlueAddr >= 0 {
					flags |= FlagExternal
					break
				}
			}

			d.Sink.PutComment(hdr.String())
			d.Sink.PutMod(name, flags)
			d.Sink.PutSize(len(local))
			d.Sink.PutContents(local)
			for _, ref := range resolved {
				if ref.IsBranch {
					d.Sink.PutWeirdRef(ref.Label, ref.Width, ref.RelOffset)
				} else {
					d.Sink.PutSimpleRef(ref.Label, ref.Width, ref.RelOffset)
				}
			}
			for _, e := range chunkOrder {
				d.Sink.PutEntry(e.Offset-mr.Start, e.Label)
			}
			d.Sink.PutComment(fmt.Sprintf("end module %s", name))

			buf.Write(local)
		}

		d.Sink.PutLast()

		if fr.HasFlag("WRITEOUT") {
			if err := writeOut(d.OutDir, fr.RelPath, buf.Bytes()); err != nil {
				return err
			}
		}
	}

	return nil
}

// writeOut writes contents to OutDir/relpath (skipping the write if the
// file already has identical contents) and a companion 8-byte descriptor
// file "OBJ MPS " (spec.md §6, §9). Errors creating parent directories are
// deliberately ignored, matching the upstream behaviour spec.md §9 records
// as retained verbatim: a non-writable intermediate directory on the
// target filesystem produces a silent skip rather than a fatal error.
func writeOut(outDir, relpath string, contents []byte) error {
	full := filepath.Join(outDir, relpath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil
	}

	if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, contents) {
		return nil
	}
	if err := os.WriteFile(full, contents, 0644); err != nil {
		return fmt.Errorf("objemit: writing %s: %w", full, err)
	}

	descPath := full + ".desc"
	return os.WriteFile(descPath, []byte("OBJ MPS "), 0644)
}
