package document

import "testing"

func mustDoc(t *testing.T, js string) *Document {
	t.Helper()
	d, err := FromJSON(js)
	if err != nil {
		t.Fatalf("FromJSON(%q): %v", js, err)
	}
	return d
}

func TestFromJSON_ToJSON_Roundtrip(t *testing.T) {
	src := `{"name":"ada","age":36,"active":true,"tags":["x","y"],"meta":{"k":1.5}}`
	d := mustDoc(t, src)

	if got, err := d.GetString("/name"); err != nil || got != "ada" {
		t.Fatalf("GetString(/name) = (%q,%v)", got, err)
	}
	if got, err := d.GetInt64("/age"); err != nil || got != 36 {
		t.Fatalf("GetInt64(/age) = (%d,%v)", got, err)
	}
	if !d.IsBool("/active") {
		t.Fatalf("expected /active to be bool")
	}
	if d.Count("/tags") != 2 {
		t.Fatalf("Count(/tags) = %d, want 2", d.Count("/tags"))
	}

	out, err := d.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	rt := mustDoc(t, out)
	if !Equal(d, rt) {
		t.Fatalf("roundtrip not equal: %s vs %s", src, out)
	}
}

func TestPointerResolution_ArrayAndEscaping(t *testing.T) {
	d := mustDoc(t, `{"a/b":{"c~d":[10,20,30]}}`)

	v, err := d.GetInt64("/a~1b/c~0d/1")
	if err != nil || v != 20 {
		t.Fatalf("escaped pointer lookup = (%d,%v), want (20,nil)", v, err)
	}

	if _, err := d.GetInt64("/a~1b/c~0d/99"); err == nil {
		t.Fatalf("expected no_such_element for out-of-range index")
	}
	if _, err := d.GetInt64("/a~1b/c~0d/-1"); err == nil {
		t.Fatalf("expected invalid_index for negative index")
	}
	if _, err := d.resolvePointer("no-leading-slash"); err == nil {
		t.Fatalf("expected ill-formed pointer error")
	}
}

func TestSet_RequiresExistingContainer(t *testing.T) {
	d := mustDoc(t, `{"a":{}}`)
	if err := d.Set("/a/b", int64(5)); err != nil {
		t.Fatalf("set into existing object container: %v", err)
	}
	v, err := d.GetInt64("/a/b")
	if err != nil || v != 5 {
		t.Fatalf("GetInt64(/a/b) = (%d,%v)", v, err)
	}

	if err := d.Set("/missing/x", int64(1)); err == nil {
		t.Fatalf("expected no_such_container when prefix missing")
	}
}

func TestSetArray_AppendAndReplace(t *testing.T) {
	d := mustDoc(t, `{"items":[1,2]}`)
	if err := d.Set("/items/2", int64(3)); err != nil {
		t.Fatalf("append at index == len: %v", err)
	}
	if d.Count("/items") != 3 {
		t.Fatalf("Count(/items) = %d, want 3", d.Count("/items"))
	}
	if err := d.Set("/items/0", int64(99)); err != nil {
		t.Fatalf("replace at existing index: %v", err)
	}
	v, _ := d.GetInt64("/items/0")
	if v != 99 {
		t.Fatalf("GetInt64(/items/0) = %d, want 99", v)
	}
	if err := d.Set("/items/10", int64(1)); err == nil {
		t.Fatalf("expected error setting far past end of array")
	}
}

func TestRemove(t *testing.T) {
	d := mustDoc(t, `{"a":1,"b":[1,2,3]}`)
	if err := d.Remove("/a"); err != nil {
		t.Fatalf("remove /a: %v", err)
	}
	if _, err := d.resolvePointer("/a"); err == nil {
		t.Fatalf("/a should be gone")
	}
	if err := d.Remove("/b/1"); err != nil {
		t.Fatalf("remove /b/1: %v", err)
	}
	if d.Count("/b") != 2 {
		t.Fatalf("Count(/b) = %d, want 2 after remove", d.Count("/b"))
	}
	v, _ := d.GetInt64("/b/1")
	if v != 3 {
		t.Fatalf("array should compact: /b/1 = %d, want 3", v)
	}
	if err := d.Remove("/nope"); err == nil {
		t.Fatalf("expected no_such_element removing missing key")
	}
}

func TestMove(t *testing.T) {
	d := mustDoc(t, `{"a":{"x":1},"b":{}}`)
	if err := d.Move("/a/x", "/b/y"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := d.resolvePointer("/a/x"); err == nil {
		t.Fatalf("/a/x should be removed after move")
	}
	v, err := d.GetInt64("/b/y")
	if err != nil || v != 1 {
		t.Fatalf("GetInt64(/b/y) after move = (%d,%v)", v, err)
	}
}

func TestCopy_IsIndependentDeepCopy(t *testing.T) {
	d := mustDoc(t, `{"a":{"x":1},"b":{}}`)
	if err := d.Copy("/a", "/b/copied"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if err := d.Set("/a/x", int64(99)); err != nil {
		t.Fatal(err)
	}
	v, err := d.GetInt64("/b/copied/x")
	if err != nil || v != 1 {
		t.Fatalf("copy should be independent, got (%d,%v), want (1,nil)", v, err)
	}
}

func TestMerge_BWinsOnConflict(t *testing.T) {
	a := mustDoc(t, `{"x":1,"shared":{"keep":1,"clash":"a"}}`)
	b := mustDoc(t, `{"y":2,"shared":{"clash":"b","added":3}}`)

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if v, _ := merged.GetInt64("/x"); v != 1 {
		t.Fatalf("merged /x = %d, want 1", v)
	}
	if v, _ := merged.GetInt64("/y"); v != 2 {
		t.Fatalf("merged /y = %d, want 2", v)
	}
	if v, _ := merged.GetInt64("/shared/keep"); v != 1 {
		t.Fatalf("merged /shared/keep = %d, want 1 (preserved from a)", v)
	}
	if v, _ := merged.GetString("/shared/clash"); v != "b" {
		t.Fatalf("merged /shared/clash = %q, want %q (b wins)", v, "b")
	}
	if v, _ := merged.GetInt64("/shared/added"); v != 3 {
		t.Fatalf("merged /shared/added = %d, want 3", v)
	}
}

func TestCompare_MixedNumericAndMissing(t *testing.T) {
	a := mustDoc(t, `{"n":5}`)
	b := mustDoc(t, `{"n":5.0}`)
	res, err := a.Compare("/n", b, "/n")
	if err != nil || res != CmpEqual {
		t.Fatalf("int 5 vs float 5.0 should compare Equal, got (%v,%v)", res, err)
	}

	c := mustDoc(t, `{}`)
	res, err = a.Compare("/n", c, "/missing")
	if err != nil || res != Greater {
		t.Fatalf("present vs missing should be Greater, got (%v,%v)", res, err)
	}
	res, err = c.Compare("/missing", c, "/alsoMissing")
	if err != nil || res != CmpEqual {
		t.Fatalf("both missing should be Equal, got (%v,%v)", res, err)
	}
}

func TestUpdate_SetSuppressesNoopWrites(t *testing.T) {
	d := mustDoc(t, `{"name":"ada","count":1}`)
	upd := mustDoc(t, `{"$set":{"/name":"ada","/count":2}}`)

	changed, err := d.Update(upd)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change since /count differs")
	}
	v, _ := d.GetInt64("/count")
	if v != 2 {
		t.Fatalf("/count = %d, want 2", v)
	}

	upd2 := mustDoc(t, `{"$set":{"/name":"ada"}}`)
	changed2, err := d.Update(upd2)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if changed2 {
		t.Fatalf("expected no change: /name already equals the new value")
	}
}

func TestUpdate_IncNumericStringBool(t *testing.T) {
	d := mustDoc(t, `{"n":10,"s":"foo","flag":true}`)
	upd := mustDoc(t, `{"$inc":{"/n":5,"/s":"bar","/flag":true}}`)

	changed, err := d.Update(upd)
	if err != nil || !changed {
		t.Fatalf("update $inc: (%v,%v)", changed, err)
	}

	n, _ := d.GetInt64("/n")
	if n != 15 {
		t.Fatalf("/n = %d, want 15", n)
	}
	s, _ := d.GetString("/s")
	if s != "foobar" {
		t.Fatalf("/s = %q, want %q", s, "foobar")
	}
	flag, _ := d.GetBool("/flag")
	if flag != false {
		t.Fatalf("/flag = %v, want false (true XOR true)", flag)
	}
}

func TestUpdate_IncOnMissingFieldInitializes(t *testing.T) {
	d := mustDoc(t, `{}`)
	upd := mustDoc(t, `{"$inc":{"/counter":3}}`)
	changed, err := d.Update(upd)
	if err != nil || !changed {
		t.Fatalf("update: (%v,%v)", changed, err)
	}
	v, err := d.GetInt64("/counter")
	if err != nil || v != 3 {
		t.Fatalf("/counter = (%d,%v), want (3,nil)", v, err)
	}
}

func TestUpsertFromUpdate(t *testing.T) {
	upd := mustDoc(t, `{"$set":{"/name":"ada","/profile/age":36},"$inc":{"/score":10}}`)
	out, err := upd.UpsertFromUpdate(upd)
	if err != nil {
		t.Fatalf("upsert from update: %v", err)
	}
	name, err := out.GetString("/name")
	if err != nil || name != "ada" {
		t.Fatalf("/name = (%q,%v)", name, err)
	}
	age, err := out.GetInt64("/profile/age")
	if err != nil || age != 36 {
		t.Fatalf("/profile/age = (%d,%v)", age, err)
	}
	score, err := out.GetInt64("/score")
	if err != nil || score != 10 {
		t.Fatalf("/score = (%d,%v)", score, err)
	}
	if _, err := out.resolvePointer("/_id"); err != nil {
		t.Fatalf("expected /_id to be ensured: %v", err)
	}
}

func TestGetArrayGetDict_SubDocumentsShareMutableTape(t *testing.T) {
	d := mustDoc(t, `{"items":[{"v":1},{"v":2}]}`)
	arr, ok := d.GetArray("/items")
	if !ok {
		t.Fatalf("GetArray(/items) failed")
	}
	if arr.Count("") != 2 {
		t.Fatalf("sub-array count = %d, want 2", arr.Count(""))
	}
	first, ok := arr.GetDict("/0")
	if !ok {
		t.Fatalf("GetDict(/0) on sub-array failed")
	}
	if err := first.Set("/v", int64(100)); err != nil {
		t.Fatalf("set through sub-document: %v", err)
	}
	v, err := d.GetInt64("/items/0/v")
	if err != nil || v != 100 {
		t.Fatalf("write through sub-document should be visible from root, got (%d,%v)", v, err)
	}
}
