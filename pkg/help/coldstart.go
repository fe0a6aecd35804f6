package help

const ColdstartYAML = `# funnelx Quick Start

credentials:
  EMBEDDABLES_API_KEY: "API key sent as X-Api-Key (required)"
  EMBEDDABLES_PROJECT_ID: "Project whose entries are exported (required)"
  note: "Values are read from the environment or a .env file in the working directory"

commands:
  all_funnels: |
    funnelx extract

  one_funnel: |
    funnelx extract --funnel medication_v1 --limit 2000

  date_window: |
    funnelx extract --date-from 2025-08-01 --date-to 2025-09-01

  buyers_only: |
    funnelx extract --funnel tirzepatide_v1 --checkout-only

  list_funnels: |
    funnelx funnels

  page_catalog: |
    funnelx pages --funnel semaglutide_v1

  run_history: |
    funnelx db runs
    funnelx db run            # latest run
    funnelx db run <run-id>

key_files:
  - "funnelx-output/{funnel}/{funnel}_{stamp}_all.csv (every normalized entry)"
  - "funnelx-output/{funnel}/{funnel}_{stamp}_complete.csv (reached checkout)"
  - "funnelx-output/{funnel}/{funnel}_{stamp}_partial.csv (dropped off)"
  - "funnelx-output/{funnel}/{funnel}_{stamp}_summary.yaml (counts, stop reason, drop-off)"
  - "funnelx-output/index.yaml (recent runs)"
  - "funnelx-output/COLUMNS.yaml (column reference)"
  - "funnelx-output/funnelx.db (run ledger)"

run_invariants:
  - "Each entry id appears at most once per funnel"
  - "complete + partial = all, and complete never includes test entries"
  - "A failed funnel never stops the others"
  - "Partial results are written when the API fails mid-run"

error_behavior:
  - "Missing credentials or bad flags: exit 2 before any request"
  - "Any funnel failed: exit 1 after all funnels finish"
  - "All funnels succeeded: exit 0"
`
