package compression

import "github.com/klauspost/compress/zstd"

// ZstdCompressor compresses stored page element payloads. Content is
// small and bilingual text-heavy, which zstd handles well at default
// level.
type ZstdCompressor struct{} // implements Compressor

func (z ZstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func (z ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
