package mcpserver

// DesignFormatContract documents the YAML design file format served as
// the raido://design-format resource.
const DesignFormatContract = `# Mechanism Design File Format

Design files are YAML documents placed in the configured designs
directory. Each file defines one planar linkage mechanism; files are
imported automatically when created or changed, and the mechanism is
removed when the file is deleted.

## Schema

` + "```yaml" + `
name: four-bar            # required, unique display name
joints:                   # at least 4 entries
  - x: 0.0                # initial position
    y: 0.0
    kind: fixed           # fixed | free | driven
  - x: 2.0
    y: 0.0
    kind: fixed
  - x: 0.25
    y: 0.0
    kind: driven
    pivot:                # required for the driven joint only
      cx: 0.0
      cy: 0.0
      radius: 0.25        # omit or set 0 to derive from position
  - x: 1.5
    y: 1.8
    kind: free
links:                    # distance constraints between joint indices
  - a: 2                  # crank: driven joint to the coupler
    b: 3
    protected: true       # crank link, never removed by editing tools
  - a: 3
    b: 1
    length: 2.0           # omit to freeze the initial distance
` + "```" + `

## Rules

- Exactly two ` + "`fixed`" + ` joints and exactly one ` + "`driven`" + ` joint.
- The driven joint carries a ` + "`pivot`" + `; its radius defaults to the
  distance from the joint's initial position to the pivot center.
- Link ` + "`length`" + ` defaults to the distance between the two joints'
  initial positions. Explicit lengths must be positive.
- The linkage must be a single connected component and satisfy the
  planar mobility condition (one degree of freedom, consumed by the
  crank). Files that fail validation are logged and skipped.
`
