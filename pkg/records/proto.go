package records

import (
	"google.golang.org/protobuf/proto"
)

// ReadRecordProto reads the next record and unmarshals it into dst. It
// returns the same error (including io.EOF) ReadRecord would, plus any
// unmarshal error.
func ReadRecordProto(rr *Reader, dst proto.Message) (Position, error) {
	rec, pos, err := rr.ReadRecord()
	if err != nil {
		return pos, err
	}
	if err := proto.Unmarshal(rec, dst); err != nil {
		return pos, err
	}
	return pos, nil
}
