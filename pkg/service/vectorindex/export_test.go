package vectorindex

// EncodeWithManifest encodes x with a replaced manifest
func EncodeWithManifest(x *Index, m Manifest) []byte {
	clone := *x
	clone.manifest = m
	data, err := Encode(&clone)
	if err != nil {
		panic(err)
	}
	return data
}
