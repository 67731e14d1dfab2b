package house

// Metric keys reported through telemetry.Metrics.
const (
	MetricHunterMoves        = "hunter_moves"
	MetricHunterMovesBlocked = "hunter_moves_blocked"
	MetricEvidenceCollected  = "evidence_collected"
	MetricEvidenceDeposited  = "evidence_deposited"
	MetricGhostMoves         = "ghost_moves"
	MetricHuntersBored       = "hunters_exited_bored"
	MetricHuntersAfraid      = "hunters_exited_afraid"
	MetricHuntersSolved      = "hunters_exited_solved"
	MetricHuntersStopped     = "hunters_exited_stopped"
	MetricCaseFileEvidence   = "casefile_evidence"
)
