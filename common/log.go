package common

import (
	"github.com/rug-cit-hpc/slurm-jobinfo/status"
)

// MT: Constant after initialization; thread-safe
var Log status.Logger = status.Default()
