package domain

const (
	ExchangeTopic = "exchange"
	RegistryTopic = "registry"
	SupplyTopic   = "supply"
)

func (e RateUpdated) GetTopic() string       { return ExchangeTopic }
func (e LiquidityAdded) GetTopic() string    { return ExchangeTopic }
func (e MappingRegistered) GetTopic() string { return RegistryTopic }
func (e MintingHalted) GetTopic() string     { return SupplyTopic }
func (e MintingResumed) GetTopic() string    { return SupplyTopic }

func (e RateUpdated) GetType() EventType       { return e.Type }
func (e LiquidityAdded) GetType() EventType    { return e.Type }
func (e MappingRegistered) GetType() EventType { return e.Type }
func (e MintingHalted) GetType() EventType     { return e.Type }
func (e MintingResumed) GetType() EventType    { return e.Type }

type RateUpdated struct {
	Type        EventType
	Id          string
	Domain      DomainID
	Base        AssetID
	Counter     AssetID
	ForwardRate uint64
	ReverseRate uint64
	Timestamp   int64
}

type LiquidityAdded struct {
	Type          EventType
	Id            string
	Domain        DomainID
	AmountBase    uint64
	AmountCounter uint64
	Timestamp     int64
}

type MappingRegistered struct {
	Type         EventType
	Id           string
	HomeAsset    AssetID
	RemoteDomain DomainID
	RemoteAsset  AssetID
	Timestamp    int64
}

type MintingHalted struct {
	Type          EventType
	Id            string
	Domain        DomainID
	Asset         AssetID
	WrappedSupply uint64
	Escrowed      uint64
	Timestamp     int64
}

type MintingResumed struct {
	Type      EventType
	Id        string
	Domain    DomainID
	Asset     AssetID
	Timestamp int64
}
