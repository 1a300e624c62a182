package ir

// CompilerVersion is the pushdown compiler version. It is reported by the
// CLI and changes whenever generated SQL for the same plan may change.
const CompilerVersion = "0.3.0"
