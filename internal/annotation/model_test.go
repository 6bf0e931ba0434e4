package annotation

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleTextAroundOrigin(t *testing.T) {
	text := NewText(r2.Point{X: 50, Y: 25}, 100, 50, "hello")
	scaled := text.Scale(0.5, r2.Point{})

	assert.Equal(t, r2.Point{X: 25, Y: 12.5}, scaled.Center())
	assert.Equal(t, 50.0, scaled.Geometry.Width)
	assert.Equal(t, 25.0, scaled.Geometry.Height)
	assert.Same(t, text.Properties, scaled.Properties)
	assert.Equal(t, r2.Point{X: 50, Y: 25}, text.Center(), "original untouched")
}

func TestScaleFixedSizeKeepsPixels(t *testing.T) {
	c := NewComment(r2.Point{X: 10, Y: 10}, 120, 40, "")
	scaled := c.Scale(2, r2.Point{})
	assert.Equal(t, r2.Point{X: 20, Y: 20}, scaled.Center())
	assert.Equal(t, 120.0, scaled.Geometry.Width)
}

func TestWithLinkReplacesSameSide(t *testing.T) {
	a := NewArrow(r2.Point{}, r2.Point{X: 10})
	a = a.WithLink(Link{TargetID: "box_1", TargetType: TargetBox, Side: SideEnd})
	a = a.WithLink(Link{TargetID: "box_2", TargetType: TargetBox, Side: SideEnd})

	require.Len(t, a.Properties.Links, 1)
	l, ok := a.LinkAt(SideEnd)
	require.True(t, ok)
	assert.Equal(t, "box_2", l.TargetID)
	assert.False(t, a.LinkedTo("box_1"))

	unlinked := a.WithoutLinksTo("box_2")
	assert.Empty(t, unlinked.Properties.Links)
	assert.Same(t, unlinked, unlinked.WithoutLink(SideStart))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewPolygon([]r2.Point{{}, {X: 1}, {Y: 1}}).Validate())
	assert.ErrorIs(t, NewPolygon([]r2.Point{{}, {X: 1}}).Validate(), ErrInvalidGeometry)

	bad := NewBox(r2.Point{}, 10, 10)
	bad.Geometry.Width = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidGeometry)
}

func TestCollectionRoundTripKeepsLinks(t *testing.T) {
	data, err := MarshalCollection(SampleSet())
	require.NoError(t, err)

	features, err := UnmarshalCollection(data)
	require.NoError(t, err)
	require.Len(t, features, 5)

	arrow := features[3]
	assert.Equal(t, KindArrow, arrow.Kind)
	l, ok := arrow.LinkAt(SideStart)
	require.True(t, ok)
	assert.Equal(t, features[2].ID, l.TargetID)
	require.NotNil(t, l.Magnet)
	assert.Equal(t, -0.5, l.Magnet.X)
}

func TestFromRecordAssignsID(t *testing.T) {
	f, err := FromRecord(Record{
		Kind:     KindBox,
		Geometry: RecordGeometry{Coordinates: [][2]float64{{1, 2}}, Width: 3, Height: 4},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, DefaultStyle(KindBox), f.Properties.Style)
}
