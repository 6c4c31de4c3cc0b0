package shapefile

import "fmt"

// ValidatePartOffsets checks an on-disk Parts array against the record's point
// count: offsets must start at 0, never decrease, and stay below numPoints.
func ValidatePartOffsets(record int, offsets []int32, numPoints int) error {
	prev := int32(0)
	for i, off := range offsets {
		if i == 0 && off != 0 {
			return &ErrInvalidRecord{Record: record, Reason: fmt.Sprintf("first part starts at %d, want 0", off)}
		}
		if off < prev {
			return &ErrInvalidRecord{Record: record, Reason: fmt.Sprintf("part %d offset %d precedes part %d", i, off, i-1)}
		}
		if int(off) >= numPoints && numPoints > 0 {
			return &ErrInvalidRecord{Record: record, Reason: fmt.Sprintf("part %d offset %d beyond %d points", i, off, numPoints)}
		}
		prev = off
	}
	return nil
}

// ValidateShapeRange checks a shape against the arena it points into.
func ValidateShapeRange(record int, s *ShapeRange, v *Vertices) error {
	if s.IsNull() {
		if s.NumPoints != 0 || len(s.Parts) != 0 {
			return &ErrInvalidRecord{Record: record, Reason: "null shape owns vertices"}
		}
		return nil
	}
	if s.StartIndex < 0 || s.End() > v.Len() {
		return &ErrInvalidRecord{Record: record,
			Reason: fmt.Sprintf("vertices [%d,%d) outside arena of %d", s.StartIndex, s.End(), v.Len())}
	}
	if s.NumParts != len(s.Parts) {
		return &ErrInvalidRecord{Record: record,
			Reason: fmt.Sprintf("NumParts %d but %d part ranges", s.NumParts, len(s.Parts))}
	}

	sum, next := 0, 0
	for i, p := range s.Parts {
		if p.PartOffset != next {
			return &ErrInvalidRecord{Record: record,
				Reason: fmt.Sprintf("part %d starts at %d, want %d", i, p.PartOffset, next)}
		}
		if p.NumVertices < 0 {
			return &ErrInvalidRecord{Record: record, Reason: fmt.Sprintf("part %d has negative length", i)}
		}
		sum += p.NumVertices
		next += p.NumVertices
	}
	if sum != s.NumPoints {
		return &ErrInvalidRecord{Record: record,
			Reason: fmt.Sprintf("parts hold %d vertices, NumPoints is %d", sum, s.NumPoints)}
	}
	if s.ShapeType.Kind() == KindPoint && s.NumPoints != 1 {
		return &ErrInvalidRecord{Record: record, Reason: fmt.Sprintf("point shape with %d vertices", s.NumPoints)}
	}
	return nil
}

// ValidateRanges checks every shape plus the arena layout invariant: shapes
// occupy consecutive, non-overlapping vertex runs in record order.
func ValidateRanges(shapes []ShapeRange, v *Vertices) error {
	next := 0
	for i := range shapes {
		s := &shapes[i]
		if s.StartIndex != next {
			return &ErrInvalidRecord{Record: i + 1,
				Reason: fmt.Sprintf("starts at vertex %d, previous shape ends at %d", s.StartIndex, next)}
		}
		if err := ValidateShapeRange(i+1, s, v); err != nil {
			return err
		}
		next = s.End()
	}
	if next != v.Len() {
		return &ErrInvalidRecord{Record: len(shapes),
			Reason: fmt.Sprintf("shapes cover %d vertices, arena holds %d", next, v.Len())}
	}
	return nil
}
