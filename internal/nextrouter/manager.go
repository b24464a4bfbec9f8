package nextrouter

// Capabilities records what the rewritten file needs. Flags only go from
// false to true and the counter only grows during one invocation.
type Capabilities struct {
	NeedsSearchParams   bool
	NeedsPathname       bool
	NeedsRouterInstance bool
	NeedsRouterType     bool
	// RouterReferenceCount counts useRouter() calls that were processed.
	RouterReferenceCount int
}

// UsageManager aggregates capability reports from the rewrite handlers of
// one file. Its predicates are only meaningful once every usage site has
// been handled.
type UsageManager struct {
	caps     Capabilities
	existing map[string]bool
}

// NewUsageManager returns a manager for a file that already imports the
// given names from next/navigation.
func NewUsageManager(existing map[string]bool) *UsageManager {
	if existing == nil {
		existing = map[string]bool{}
	}
	return &UsageManager{existing: existing}
}

func (m *UsageManager) ReportSearchParamsUsed() { m.caps.NeedsSearchParams = true }
func (m *UsageManager) ReportPathnameUsed()     { m.caps.NeedsPathname = true }
func (m *UsageManager) ReportRouterUsed()       { m.caps.NeedsRouterInstance = true }
func (m *UsageManager) ReportRouterTypeUsed()   { m.caps.NeedsRouterType = true }
func (m *UsageManager) IncreaseUseRouterCount() { m.caps.RouterReferenceCount++ }

// Capabilities returns a snapshot of the aggregated flags.
func (m *UsageManager) Capabilities() Capabilities { return m.caps }

// ShouldImportUseRouter reports whether useRouter must be imported from
// next/navigation: the hook was never called in a recognized way, or the
// router instance itself is still referenced.
func (m *UsageManager) ShouldImportUseRouter() bool {
	return m.caps.RouterReferenceCount == 0 || m.caps.NeedsRouterInstance
}

func (m *UsageManager) ShouldImportUseSearchParams() bool {
	return m.caps.NeedsSearchParams && !m.existing[SearchParamHook]
}

func (m *UsageManager) ShouldImportUsePathname() bool {
	return m.caps.NeedsPathname && !m.existing[PathnameHook]
}

func (m *UsageManager) ShouldImportRouterType() bool {
	return m.caps.NeedsRouterType
}
