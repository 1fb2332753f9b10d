package refine

import (
	"bytes"
	"fmt"
	"text/template"
)

// Job is everything a refinement script is rendered from.
type Job struct {
	Sample    string
	Engine    Engine
	Cycle     int
	SampleDir string
	CycleDir  string

	Model            string
	Reflections      string
	FreeSet          string
	LigandRestraints string

	Params map[string]string

	Time   string
	CPUs   int
	Module string
}

// Keywords returns refmac keyword lines for refmac jobs.
func (j Job) Keywords() []string {
	if j.Engine != Refmac {
		return nil
	}
	return refmacKeywords(j.Params)
}

// Flags returns buster command line flags for buster jobs.
func (j Job) Flags() []string {
	if j.Engine != Buster {
		return nil
	}
	return busterFlags(j.Params)
}

// JobName is the queue job name.
func (j Job) JobName() string {
	return fmt.Sprintf("%s_%s_%d", j.Engine, j.Sample, j.Cycle)
}

var shTemplate = template.Must(template.New("sh").Parse(`#!/bin/bash
#SBATCH --time={{.Time}}
#SBATCH --job-name={{.JobName}}
#SBATCH --cpus-per-task={{.CPUs}}
{{if .Module}}{{.Module}}
{{end}}cd {{.CycleDir}}
{{if eq .Engine "refmac" -}}
refmac5 HKLIN {{.Reflections}} XYZIN {{.Model}} HKLOUT refine.mtz XYZOUT refine.pdb{{if .LigandRestraints}} LIBIN {{.LigandRestraints}}{{end}} << EOF > refmac.log
{{range .Keywords}}{{.}}
{{end}}EOF
{{- else -}}
refine -p {{.Model}} -m {{.Reflections}}{{if .LigandRestraints}} -l {{.LigandRestraints}}{{end}} -d buster{{range .Flags}} {{.}}{{end}} > buster.log
ln -sf buster/refine.pdb refine.pdb
ln -sf buster/refine.mtz refine.mtz
{{- end}}
cd {{.SampleDir}}
ln -sf {{.CycleDir}}/refine.pdb refine.pdb
ln -sf {{.CycleDir}}/refine.mtz refine.mtz
`))

var batTemplate = template.Must(template.New("bat").Parse(`@echo off
rem job {{.JobName}}
cd /d "{{.CycleDir}}"
{{if eq .Engine "refmac" -}}
(
{{- range .Keywords}}
echo {{.}}
{{- end}}
) | refmac5 HKLIN "{{.Reflections}}" XYZIN "{{.Model}}" HKLOUT refine.mtz XYZOUT refine.pdb{{if .LigandRestraints}} LIBIN "{{.LigandRestraints}}"{{end}} > refmac.log
{{- else -}}
refine -p "{{.Model}}" -m "{{.Reflections}}"{{if .LigandRestraints}} -l "{{.LigandRestraints}}"{{end}} -d buster{{range .Flags}} {{.}}{{end}} > buster.log
copy /y buster\refine.pdb refine.pdb
copy /y buster\refine.mtz refine.mtz
{{- end}}
copy /y refine.pdb "{{.SampleDir}}\refine.pdb"
copy /y refine.mtz "{{.SampleDir}}\refine.mtz"
`))

// Render returns the script text for job in the given format ("sh" or
// "bat").
func Render(job Job, format string) (string, error) {
	var t *template.Template
	switch format {
	case "sh", "":
		t = shTemplate
	case "bat":
		t = batTemplate
	default:
		return "", fmt.Errorf("unsupported script format %q", format)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, job); err != nil {
		return "", fmt.Errorf("failed to render %s script for %s: %w", job.Engine, job.Sample, err)
	}
	return buf.String(), nil
}
