package overpass

import (
	"fmt"
	"time"
)

// castleQuery matches castles and castle ruins inside a named area. Ways and
// relations get a center point; the second out statement returns the member
// nodes as skeletons.
const castleQuery = `[out:json][timeout:%d];
area["name"="%s"]->.searchArea;
(
  nwr["historic"="castle"](area.searchArea);
  nwr["historic"="ruins"]["ruins"="castle"](area.searchArea);
  nwr["tourism"="attraction"]["historic"="castle"](area.searchArea);
);
out center;
>;
out skel qt;
`

func buildCastleQuery(area string, serverTimeout time.Duration) string {
	return fmt.Sprintf(castleQuery, int(serverTimeout.Seconds()), area)
}
