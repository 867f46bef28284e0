package model

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScalar(t *testing.T) {
	Convey("Given payload columns with varying wire types", t, func() {
		var row struct {
			A Scalar `json:"a"`
			B Scalar `json:"b"`
			C Scalar `json:"c"`
			D Scalar `json:"d"`
		}
		err := json.Unmarshal([]byte(`{"a":12.5,"b":"KV-9","c":null,"d":true}`), &row)

		Convey("Then each decodes to its textual form", func() {
			So(err, ShouldBeNil)
			So(row.A, ShouldEqual, Scalar("12.5"))
			So(row.B.String(), ShouldEqual, "KV-9")
			So(row.C, ShouldEqual, Scalar(""))
			So(row.D, ShouldEqual, Scalar("true"))
		})

		Convey("And encoding restores the original types", func() {
			out, err := json.Marshal(row)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `{"a":12.5,"b":"KV-9","c":null,"d":true}`)
		})
	})

	Convey("Given a composite value", t, func() {
		var s Scalar
		err := json.Unmarshal([]byte(`{"x":1}`), &s)

		Convey("Then decoding fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPayloads(t *testing.T) {
	Convey("Given a result detail for an unknown id", t, func() {
		var d ResultDetail
		So(json.Unmarshal([]byte(`{"error":"Result not found"}`), &d), ShouldBeNil)

		Convey("Then it is reported as not found", func() {
			So(d.Found(), ShouldBeFalse)
			So(d.OK(), ShouldBeFalse)
		})
	})

	Convey("Given a passing result detail", t, func() {
		var d ResultDetail
		So(json.Unmarshal([]byte(`{"id":42,"result_status":1,"craft_type":3,"system_id":"S1"}`), &d), ShouldBeNil)

		Convey("Then the embedded row is populated", func() {
			So(d.Found(), ShouldBeTrue)
			So(d.OK(), ShouldBeTrue)
			So(d.ID, ShouldEqual, 42)
			So(d.CraftType, ShouldEqual, Scalar("3"))
			So(d.SystemID, ShouldEqual, Scalar("S1"))
		})
	})

	Convey("Given a structure tree", t, func() {
		var root StructureNode
		So(json.Unmarshal([]byte(`{"id":1,"label":"Plant","children":[
			{"id":2,"label":"Line","children":[{"id":3,"label":"Cell","children":[]}]},
			{"id":4,"label":"Store","children":[]}]}`), &root), ShouldBeNil)

		Convey("Then Walk visits every node depth first", func() {
			var labels []string
			var depths []int
			root.Walk(func(n StructureNode, depth int) {
				labels = append(labels, n.Label)
				depths = append(depths, depth)
			})
			So(labels, ShouldResemble, []string{"Plant", "Line", "Cell", "Store"})
			So(depths, ShouldResemble, []int{0, 1, 2, 1})
		})
	})
}

func TestParams(t *testing.T) {
	Convey("Given paging helpers", t, func() {
		Convey("Then only positive values are set", func() {
			So(PageParams(2, 50).Encode(), ShouldEqual, "page=2&page_size=50")
			So(PageParams(0, 0), ShouldBeEmpty)
			So(LimitParams(10).Get("limit"), ShouldEqual, "10")
		})
	})
}
