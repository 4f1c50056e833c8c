// Kinmsm samples structures and computes free-energy landscapes from fitted
// kinase MSM projects.
package main

import (
	"github.com/js-arias/command"
)

var app = &command.Command{
	Usage: "kinmsm <command> [<argument>...]",
	Short: "sample structures and free energies from kinase MSM projects",
}

func init() {
	app.Add(sampleTicCmd)
	app.Add(sampleAllCmd)
	app.Add(sampleRegionCmd)
	app.Add(sampleStatesCmd)
	app.Add(freeEnergyCmd)
	app.Add(importanceCmd)
	app.Add(sliceCmd)
	app.Add(runsCmd)

	// help topics
	app.Add(projectGuide)
}

func main() {
	app.Main()
}

var projectGuide = &command.Command{
	Usage: "project",
	Short: "about project files",
	Long: wrap(`
A project file is a YAML document naming the data and model directories of
every protein. Relative paths are resolved against the directory of the
project file.`) + `

	base_dir        raw data, one directory per protein
	mdl_dir         fitted models, one directory per protein
	feature_dir     feature dumps inside base_dir/<protein>
	traj_dir        DCD trajectories inside base_dir/<protein>
	topology_file   reference PDB inside base_dir/<protein>
	alignment_file  sequence alignment for common-feature selection
	protein_list    proteins of the project
	params          model parameters, at least tica__n_components

` + wrap(`Each model directory holds the tica_data, assignments and msm_mdl
artifacts as JSON, optionally zstd-compressed (.json.zst). Sampling commands
write their trajectories, logs and reference structures into the same
directory.`),
}
