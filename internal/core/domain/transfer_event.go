package domain

const TransferTopic = "transfer"

func (e TransferInitiated) GetTopic() string { return TransferTopic }
func (e InputBurned) GetTopic() string       { return TransferTopic }
func (e ReleaseRequested) GetTopic() string  { return TransferTopic }
func (e InputReleased) GetTopic() string     { return TransferTopic }
func (e OutputSwapped) GetTopic() string     { return TransferTopic }
func (e LockRequested) GetTopic() string     { return TransferTopic }
func (e OutputLocked) GetTopic() string      { return TransferTopic }
func (e MintRequested) GetTopic() string     { return TransferTopic }
func (e OutputMinted) GetTopic() string      { return TransferTopic }
func (e TransferReverted) GetTopic() string  { return TransferTopic }

func (e TransferInitiated) GetType() EventType { return e.Type }
func (e InputBurned) GetType() EventType       { return e.Type }
func (e ReleaseRequested) GetType() EventType  { return e.Type }
func (e InputReleased) GetType() EventType     { return e.Type }
func (e OutputSwapped) GetType() EventType     { return e.Type }
func (e LockRequested) GetType() EventType     { return e.Type }
func (e OutputLocked) GetType() EventType      { return e.Type }
func (e MintRequested) GetType() EventType     { return e.Type }
func (e OutputMinted) GetType() EventType      { return e.Type }
func (e TransferReverted) GetType() EventType  { return e.Type }

type TransferInitiated struct {
	Type          EventType
	Id            string
	OriginDomain  DomainID
	Trader        string
	FromAsset     AssetID
	ToAsset       AssetID
	HomeFromAsset AssetID
	HomeToAsset   AssetID
	AmountIn      uint64
	Timestamp     int64
}

type InputBurned struct {
	Type      EventType
	Id        string
	Domain    DomainID
	Asset     AssetID
	Amount    uint64
	Nonce     uint64
	Timestamp int64
}

type ReleaseRequested struct {
	Type      EventType
	Id        string
	Timestamp int64
}

type InputReleased struct {
	Type      EventType
	Id        string
	Asset     AssetID
	Amount    uint64
	Timestamp int64
}

type OutputSwapped struct {
	Type      EventType
	Id        string
	FromAsset AssetID
	ToAsset   AssetID
	AmountIn  uint64
	AmountOut uint64
	Timestamp int64
}

type LockRequested struct {
	Type      EventType
	Id        string
	Timestamp int64
}

type OutputLocked struct {
	Type      EventType
	Id        string
	Seq       uint64
	Asset     AssetID
	Amount    uint64
	Timestamp int64
}

type MintRequested struct {
	Type      EventType
	Id        string
	Timestamp int64
}

type OutputMinted struct {
	Type      EventType
	Id        string
	Domain    DomainID
	Asset     AssetID
	Amount    uint64
	Holder    string
	Timestamp int64
}

type TransferReverted struct {
	Type              EventType
	Id                string
	Reason            string
	FailedState       TransferState
	CompensatedAmount uint64
	Timestamp         int64
}
